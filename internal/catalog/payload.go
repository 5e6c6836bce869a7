package catalog

import (
	"encoding/json"

	appErr "github.com/stackcanvas/engine/pkg/errors"
)

// EncodePayload serializes a definition for attachment to a drag-start
// event's data-transfer object.
func EncodePayload(def ServiceDefinition) (string, error) {
	b, err := json.Marshal(def)
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeInternal, "encode drag payload")
	}
	return string(b), nil
}

// DecodePayload parses a drag payload back into a catalog reference.
// Only the id is trusted; the returned definition is the canonical
// catalog entry, not whatever the payload carried.
func (c *Catalog) DecodePayload(payload string) (ServiceDefinition, error) {
	var carried struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(payload), &carried); err != nil {
		return ServiceDefinition{}, appErr.Wrap(err, appErr.CodeInvalid, "malformed drag payload")
	}
	def, ok := c.Get(carried.ID)
	if !ok {
		return ServiceDefinition{}, appErr.Newf(appErr.CodeUnsupported, "unknown service %q in drag payload", carried.ID)
	}
	return def, nil
}
