package mqtt

import "strings"

// Topics builds the topics the door controller publishes on.
//
//	topics := mqtt.Topics{Prefix: "coop/door"}
//	topics.Status() // "coop/door/status"
type Topics struct {
	Prefix string
}

// Status is the retained topic carrying the current door record.
func (t Topics) Status() string {
	return t.join("status")
}

// Alert carries motion requests and stuck-door warnings.
func (t Topics) Alert() string {
	return t.join("alert")
}

// Presence is the retained online/offline topic, also used as the will.
func (t Topics) Presence() string {
	return t.join("presence")
}

func (t Topics) join(leaf string) string {
	prefix := strings.Trim(t.Prefix, "/")
	if prefix == "" {
		return leaf
	}
	return prefix + "/" + leaf
}
