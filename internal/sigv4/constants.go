// Package sigv4 implements AWS Signature Version 4 presigning for the
// Lysbox presign service. This implementation follows the AWS v4 signature
// specification for S3-compatible endpoints.
package sigv4

// =============================================================================
// Constants
// =============================================================================

const (
	// Algorithm is the algorithm identifier for AWS Signature Version 4.
	Algorithm = "AWS4-HMAC-SHA256"

	// ISO8601BasicFormat is the date format used in AWS v4 signatures.
	ISO8601BasicFormat = "20060102T150405Z"

	// YYYYMMDD is the short date format used in credential scope.
	YYYYMMDD = "20060102"

	// AWS4Request is the termination string for credential scope.
	AWS4Request = "aws4_request"

	// ServiceS3 is the service name for S3.
	ServiceS3 = "s3"

	// RegionAuto is the wildcard region accepted by S3-compatible
	// providers that do not partition by region.
	RegionAuto = "auto"
)

// =============================================================================
// Presigned URL Query Parameters
// =============================================================================

const (
	// XAmzAlgorithm identifies the signing algorithm.
	XAmzAlgorithm = "X-Amz-Algorithm"

	// XAmzCredential carries the access key and credential scope.
	XAmzCredential = "X-Amz-Credential"

	// XAmzDate is the signing instant in ISO 8601 basic format.
	XAmzDate = "X-Amz-Date"

	// XAmzExpires is the validity window in seconds.
	XAmzExpires = "X-Amz-Expires"

	// XAmzSignedHeaders lists the headers covered by the signature.
	XAmzSignedHeaders = "X-Amz-SignedHeaders"

	// XAmzSignature is the final signature. Never part of the canonical
	// query string.
	XAmzSignature = "X-Amz-Signature"
)

// =============================================================================
// Special Content Hash Values
// =============================================================================

const (
	// UnsignedPayload indicates the payload is not included in the signature.
	// Presigned URLs always use it: the object bytes are unknown at signing
	// time for PUT and irrelevant for GET.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// EmptyStringSHA256 is the SHA-256 hash of an empty string.
	EmptyStringSHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)
