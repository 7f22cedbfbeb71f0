package mw

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AccessKeyHeader carries the shared secret on status requests.
const AccessKeyHeader = "x-access-key"

// AccessKey rejects requests whose x-access-key header does not exactly match
// secret. An empty secret rejects everything.
func AccessKey(secret string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		got := c.GetHeader(AccessKeyHeader)
		if len(want) == 0 || got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing access key"})
			return
		}
		c.Next()
	}
}

// AccessKeyOrQuery is AccessKey that also accepts the secret in a query
// parameter, for clients such as browser websockets that cannot set headers.
func AccessKeyOrQuery(secret, param string) gin.HandlerFunc {
	check := AccessKey(secret)
	return func(c *gin.Context) {
		if c.GetHeader(AccessKeyHeader) == "" {
			if v := c.Query(param); v != "" {
				c.Request.Header.Set(AccessKeyHeader, v)
			}
		}
		check(c)
	}
}
