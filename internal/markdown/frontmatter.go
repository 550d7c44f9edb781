// Package markdown reads and writes planning object files: a YAML
// front-matter block between "---" lines followed by a free-form body.
package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

const delimiter = "---"

// ErrNoFrontMatter is returned when a file does not start with a front-matter
// block.
var ErrNoFrontMatter = errors.New("missing front-matter")

// Document is a parsed object file.
type Document struct {
	Object types.Object
	Body   string
}

// Parse splits data into front-matter and body and decodes the front-matter.
func Parse(data []byte) (*Document, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimPrefix(text, "\ufeff")

	if !strings.HasPrefix(text, delimiter+"\n") {
		return nil, ErrNoFrontMatter
	}
	rest := text[len(delimiter)+1:]

	var header, body string
	switch {
	case strings.HasPrefix(rest, delimiter+"\n"):
		body = rest[len(delimiter)+1:]
	case rest == delimiter:
	default:
		end := strings.Index(rest, "\n"+delimiter+"\n")
		if end < 0 {
			if !strings.HasSuffix(rest, "\n"+delimiter) {
				return nil, fmt.Errorf("unterminated front-matter: %w", ErrNoFrontMatter)
			}
			end = len(rest) - len(delimiter) - 1
			header = rest[:end]
		} else {
			header = rest[:end]
			body = rest[end+len(delimiter)+2:]
		}
	}

	doc := &Document{Body: strings.TrimPrefix(body, "\n")}
	if strings.TrimSpace(header) != "" {
		if err := yaml.Unmarshal([]byte(header), &doc.Object); err != nil {
			return nil, fmt.Errorf("decode front-matter: %w", err)
		}
	}
	return doc, nil
}

// ReadFile parses the object file at path and records the path on the object.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 - paths come from the resolver
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Object.Path = path
	return doc, nil
}

// Render serializes doc back to file content.
func Render(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc.Object); err != nil {
		return nil, fmt.Errorf("encode front-matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	buf.WriteString(delimiter + "\n")
	if doc.Body != "" {
		buf.WriteString("\n")
		buf.WriteString(doc.Body)
		if !strings.HasSuffix(doc.Body, "\n") {
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}

var validate = validator.New()

// Validate checks the structural constraints declared on types.Object and the
// kind-specific status set.
func (d *Document) Validate() error {
	if err := validate.Struct(&d.Object); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("invalid front-matter: %s", strings.Join(fields, ", "))
		}
		return err
	}
	if !d.Object.Status.IsValidFor(d.Object.Kind) {
		return &types.StatusError{Kind: d.Object.Kind, Status: d.Object.Status}
	}
	return nil
}
