// Package sigv4 implements AWS Signature Version 4 presigning for the
// Lysbox presign service.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// Credential Scope
// =============================================================================

// CredentialScope represents the scope of the derived signing key.
// Format: {date}/{region}/{service}/aws4_request
type CredentialScope struct {
	Date    time.Time
	Region  string
	Service string
}

// String returns the scope in credential format.
func (s CredentialScope) String() string {
	return s.Date.Format(YYYYMMDD) + "/" + s.Region + "/" + s.Service + "/" + AWS4Request
}

// =============================================================================
// Signing Key Derivation
// =============================================================================

// SigningKey derives the date/region/service-scoped signing key.
// This implements the key derivation: HMAC(HMAC(HMAC(HMAC("AWS4"+secret, date), region), service), "aws4_request")
func SigningKey(secretKey string, date time.Time, region, service string) []byte {
	// Step 1: kDate = HMAC("AWS4" + secretKey, date)
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(date.Format(YYYYMMDD)))

	// Step 2: kRegion = HMAC(kDate, region)
	kRegion := hmacSHA256(kDate, []byte(region))

	// Step 3: kService = HMAC(kRegion, service)
	kService := hmacSHA256(kRegion, []byte(service))

	// Step 4: kSigning = HMAC(kService, "aws4_request")
	kSigning := hmacSHA256(kService, []byte(AWS4Request))

	return kSigning
}

// Signature calculates the hex-encoded signature using the signing key.
func Signature(signingKey []byte, stringToSign string) string {
	return hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))
}

// hmacSHA256 computes HMAC-SHA256.
func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// =============================================================================
// Canonical Request Building
// =============================================================================

// BuildCanonicalRequest assembles the canonical request components.
// For fixed inputs the output is byte-identical on every call; any
// deviation invalidates the signature downstream.
func BuildCanonicalRequest(method, uri, queryString, headers, signedHeaders, payloadHash string) string {
	return method + "\n" +
		uri + "\n" +
		queryString + "\n" +
		headers + "\n" +
		signedHeaders + "\n" +
		payloadHash
}

// CanonicalURI returns the URI-encoded path.
// S3 requires each path segment URI-encoded with "/" kept literal.
func CanonicalURI(path string) string {
	if path == "" {
		return "/"
	}
	return uriEncode(path, false)
}

// CanonicalQueryString returns the sorted, URI-encoded query string.
// X-Amz-Signature is excluded: the signature is appended only after the
// canonical request has been hashed.
func CanonicalQueryString(query url.Values) string {
	if len(query) == 0 {
		return ""
	}

	// Get sorted keys
	keys := make([]string, 0, len(query))
	for key := range query {
		if key == XAmzSignature {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// Build canonical query string
	var pairs []string
	for _, key := range keys {
		values := append([]string(nil), query[key]...)
		sort.Strings(values)
		for _, value := range values {
			pairs = append(pairs, uriEncode(key, true)+"="+uriEncode(value, true))
		}
	}

	return strings.Join(pairs, "&")
}

// CanonicalHeaders builds the canonical headers string.
// signedHeaders must already be lowercase and sorted.
func CanonicalHeaders(headers map[string]string, signedHeaders []string) string {
	var builder strings.Builder

	for _, header := range signedHeaders {
		value := headers[header]
		value = strings.TrimSpace(value)
		value = strings.Join(strings.Fields(value), " ")

		builder.WriteString(strings.ToLower(header))
		builder.WriteString(":")
		builder.WriteString(value)
		builder.WriteString("\n")
	}

	return builder.String()
}

// =============================================================================
// String to Sign Building
// =============================================================================

// StringToSign builds the string to sign from the canonical request.
func StringToSign(canonicalRequest string, requestTime time.Time, scope CredentialScope) string {
	// Hash the canonical request
	hash := sha256.Sum256([]byte(canonicalRequest))
	canonicalRequestHash := hex.EncodeToString(hash[:])

	return Algorithm + "\n" +
		requestTime.Format(ISO8601BasicFormat) + "\n" +
		scope.String() + "\n" +
		canonicalRequestHash
}

// =============================================================================
// URI Encoding
// =============================================================================

const upperhex = "0123456789ABCDEF"

// uriEncode percent-encodes a string per the SigV4 rules: unreserved
// characters (A-Z, a-z, 0-9, '-', '_', '.', '~') pass through, everything
// else becomes %XX with uppercase hex and space as %20, never '+'.
// When encodeSlash is false, '/' is kept literal (path encoding).
func uriEncode(s string, encodeSlash bool) string {
	var builder strings.Builder
	builder.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
			builder.WriteByte(c)
		case c == '-' || c == '_' || c == '.' || c == '~':
			builder.WriteByte(c)
		case c == '/' && !encodeSlash:
			builder.WriteByte(c)
		default:
			builder.WriteByte('%')
			builder.WriteByte(upperhex[c>>4])
			builder.WriteByte(upperhex[c&0xf])
		}
	}

	return builder.String()
}

// EncodeQuery renders query values with SigV4 encoding, sorted by key,
// suitable for the final URL. url.Values.Encode is not used because it
// emits '+' for spaces, which the canonical form never contains.
func EncodeQuery(query url.Values) string {
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var pairs []string
	for _, key := range keys {
		for _, value := range query[key] {
			pairs = append(pairs, uriEncode(key, true)+"="+uriEncode(value, true))
		}
	}

	return strings.Join(pairs, "&")
}
