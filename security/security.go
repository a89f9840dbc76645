package security

import (
	"crypto/subtle"
	"mime"
)

var validContentTypes = map[string]bool{
	"application/json":                  true,
	"application/x-www-form-urlencoded": true,
	"multipart/form-data":               true,
}

// ValidateContentType reports whether a Content-Type header names a body
// format the API accepts. Parameters such as charset or boundary are ignored.
func ValidateContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return validContentTypes[mediaType]
}

// SecretsEqual compares two secrets in constant time.
func SecretsEqual(given, expected string) bool {
	if given == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(expected)) == 1
}
