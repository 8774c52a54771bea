package s3

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/asset-store/pkg/assetstore"
)

const (
	authScheme = "AWS"
	aclHeader  = "x-amz-acl"
	aclPrivate = "private"

	defaultEndpointTemplate = "https://{bucket}.s3.amazonaws.com"
)

// signer produces HMAC-SHA1 signed request descriptors for direct client
// access to the provider. It holds no mutable state and is safe for
// concurrent use across upload sessions.
type signer struct {
	accessKeyID string
	secret      []byte
	bucket      string
	baseURL     string
	ttl         time.Duration
	now         func() time.Time
}

func newSigner(info *assetstore.S3Info, ttl time.Duration, now func() time.Time) *signer {
	return &signer{
		accessKeyID: info.AccessKeyID,
		secret:      []byte(info.Secret),
		bucket:      info.Bucket,
		baseURL:     resolveEndpoint(info.Endpoint, info.Bucket),
		ttl:         ttl,
		now:         now,
	}
}

// resolveEndpoint expands the endpoint template into a base URL without a
// trailing slash. A template containing "{bucket}" yields virtual-hosted
// addressing; anything else is treated as a path-style base.
func resolveEndpoint(template, bucket string) string {
	if template == "" {
		template = defaultEndpointTemplate
	}
	base := strings.TrimSuffix(template, "/")
	if strings.Contains(base, "{bucket}") {
		return strings.ReplaceAll(base, "{bucket}", bucket)
	}
	return base + "/" + bucket
}

// signParams describes one request to sign.
type signParams struct {
	method      string
	key         string
	subresource string // canonical query suffix, e.g. "uploads"
	contentType string
	amzHeaders  []string          // canonical "name:value" lines included in the signature
	headers     map[string]string // additional unsigned headers, e.g. Range
}

// sign builds the canonical message for the request, computes
// base64(HMAC-SHA1(secret, message)) and returns the descriptor the client
// forwards verbatim. The Date header carries the same expiry timestamp that
// was signed; the provider rejects the request if the two diverge.
func (s *signer) sign(p signParams) assetstore.SignedRequest {
	expires := s.now().Add(s.ttl).Unix()

	resource := "/" + s.bucket + "/" + p.key
	if p.subresource != "" {
		resource += "?" + p.subresource
	}

	// Canonical message, fixed order: method, content-MD5 (unused), content
	// type, expiry seconds, signed amz headers, canonical resource.
	lines := make([]string, 0, 5+len(p.amzHeaders))
	lines = append(lines, p.method, "", p.contentType, strconv.FormatInt(expires, 10))
	lines = append(lines, p.amzHeaders...)
	lines = append(lines, resource)

	mac := hmac.New(sha1.New, s.secret)
	mac.Write([]byte(strings.Join(lines, "\n")))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	headers := map[string]string{
		"Authorization": fmt.Sprintf("%s %s:%s", authScheme, s.accessKeyID, signature),
		"Date":          strconv.FormatInt(expires, 10),
	}
	for _, line := range p.amzHeaders {
		if name, value, ok := strings.Cut(line, ":"); ok {
			headers[name] = value
		}
	}
	if p.contentType != "" {
		headers["Content-Type"] = p.contentType
	}
	for name, value := range p.headers {
		headers[name] = value
	}

	requestURL := s.baseURL + "/" + p.key
	if p.subresource != "" {
		requestURL += "?" + p.subresource
	}

	return assetstore.SignedRequest{
		Method:    p.method,
		URL:       requestURL,
		Headers:   headers,
		ExpiresAt: expires,
	}
}

func privateACL() []string {
	return []string{aclHeader + ":" + aclPrivate}
}

// putObject authorizes a single-shot PUT of the whole object.
func (s *signer) putObject(key, contentType string) assetstore.SignedRequest {
	return s.sign(signParams{
		method:      "PUT",
		key:         key,
		contentType: contentType,
		amzHeaders:  privateACL(),
	})
}

// initiateMultipart authorizes the POST that opens a multipart upload.
func (s *signer) initiateMultipart(key string) assetstore.SignedRequest {
	return s.sign(signParams{
		method:      "POST",
		key:         key,
		subresource: "uploads",
		amzHeaders:  privateACL(),
	})
}

// uploadPart authorizes the PUT of one part of a multipart upload.
func (s *signer) uploadPart(key, uploadID string, partNumber int) assetstore.SignedRequest {
	return s.sign(signParams{
		method:      "PUT",
		key:         key,
		subresource: fmt.Sprintf("partNumber=%d&uploadId=%s", partNumber, url.QueryEscape(uploadID)),
	})
}

// completeMultipart authorizes the POST that assembles the object from its
// recorded parts.
func (s *signer) completeMultipart(key, uploadID string) assetstore.SignedRequest {
	return s.sign(signParams{
		method:      "POST",
		key:         key,
		subresource: "uploadId=" + url.QueryEscape(uploadID),
		contentType: "text/xml",
	})
}

// abortMultipart authorizes the DELETE that discards uncommitted parts.
func (s *signer) abortMultipart(key, uploadID string) assetstore.SignedRequest {
	return s.sign(signParams{
		method:      "DELETE",
		key:         key,
		subresource: "uploadId=" + url.QueryEscape(uploadID),
	})
}

// getObject authorizes a download, optionally from a byte offset. The Range
// header is carried on the descriptor but is not part of the canonical
// message; only amz headers are signed.
func (s *signer) getObject(key string, offset int64) assetstore.SignedRequest {
	p := signParams{method: "GET", key: key}
	if offset > 0 {
		p.headers = map[string]string{"Range": fmt.Sprintf("bytes=%d-", offset)}
	}
	return s.sign(p)
}

// deleteObject authorizes the DELETE of the object itself.
func (s *signer) deleteObject(key string) assetstore.SignedRequest {
	return s.sign(signParams{method: "DELETE", key: key})
}
