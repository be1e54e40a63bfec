package composer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

const (
	// maxNameLength is the DNS label limit for cluster object names.
	maxNameLength = 63

	// hashSuffixLength sizes the disambiguating suffix appended when a
	// name does not fit the label limit.
	hashSuffixLength = 8
)

// ResourceName derives the cluster object name for a deployment from
// its project id and name. The function is pure, so the same inputs
// always map to the same object; uniqueness comes from this
// determinism rather than from locking. Names that overflow the DNS
// label limit are truncated and disambiguated with a hash of the full
// form, so two long names sharing a prefix still map to distinct
// objects.
func ResourceName(projectID uuid.UUID, name string) string {
	return sanitizeLabel(projectID.String() + "-" + name)
}

// Subdomain derives the default external subdomain from the deployment
// name and the first 8 hex characters of the owner id.
func Subdomain(name string, owner uuid.UUID) string {
	return sanitizeLabel(name + "-" + owner.String()[:8])
}

// SecretObjectName names the cluster secret holding a deployment's
// secret env values.
func SecretObjectName(resourceName string) string {
	return resourceName + "-secrets"
}

// TLSSecretName names the certificate secret referenced by the ingress.
func TLSSecretName(resourceName string) string {
	return resourceName + "-tls"
}

// sanitizeLabel lowercases the input, maps underscores to dashes,
// drops anything that is not a DNS label character, and enforces the
// label length limit. Overlong labels keep a truncated prefix plus a
// hash of the full sanitized form.
func sanitizeLabel(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "-")

	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}

	out := b.String()
	if len(out) > maxNameLength {
		sum := sha256.Sum256([]byte(out))
		suffix := hex.EncodeToString(sum[:])[:hashSuffixLength]
		prefix := strings.Trim(out[:maxNameLength-hashSuffixLength-1], "-")
		out = prefix + "-" + suffix
	}

	return strings.Trim(out, "-")
}
