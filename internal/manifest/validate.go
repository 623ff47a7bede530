package manifest

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
)

//go:embed schema/descriptor.schema.json
var descriptorSchema []byte

var compiledDescriptorSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(descriptorSchema))
})

// ValidateDescriptor checks a registry descriptor (or connect manifest) against the embedded schema.
// The transports array must be non-empty, and every transport must have a known type and that type's required field.
func ValidateDescriptor(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: server descriptor is missing", dmcperrors.ErrInvalidInput)
	}

	schema, err := compiledDescriptorSchema()
	if err != nil {
		return fmt.Errorf("descriptor schema: %w", err)
	}

	data, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: %w", dmcperrors.ErrSerialization, err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: error validating server descriptor: %w", dmcperrors.ErrInvalidInput, err)
	}

	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return fmt.Errorf("%w: invalid server descriptor: %s", dmcperrors.ErrInvalidInput, strings.Join(problems, "; "))
	}

	return nil
}
