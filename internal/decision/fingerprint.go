package decision

import (
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/blake2b"

	dErrors "railclaim/pkg/domain-errors"
)

// Fingerprint hashes the request together with the catalog version and the
// policy. Two calls with the same fingerprint produce the same outcome, so a
// stored record can be replayed instead of re-evaluated.
func Fingerprint(req Request, catalogVersion string, policy Policy) (string, error) {
	payload, err := json.Marshal(struct {
		Request        Request
		CatalogVersion string
		Policy         Policy
	}{req, catalogVersion, policy})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode request for fingerprint")
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
