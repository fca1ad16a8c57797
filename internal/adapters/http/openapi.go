package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	_ "embed"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openAPISpec []byte

var openAPIJSON = sync.OnceValues(func() ([]byte, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return json.Marshal(doc)
})

// ValidateOpenAPISpec parses the embedded document once; called at startup so
// a malformed spec fails the boot instead of the first client request.
func ValidateOpenAPISpec() error {
	_, err := openAPIJSON()
	return err
}

func (rt *Router) openAPIDocument(w http.ResponseWriter, _ *http.Request) {
	payload, err := openAPIJSON()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "openapi document unavailable"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
