package plugins_test

import (
	"os"
	"testing"
	"time"

	"github.com/goliatone/go-xview/pkg/document"
)

func parseNode(t *testing.T, text string) *document.Node {
	t.Helper()

	node, err := document.ParseString(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return node
}

func chtimes(path string, at time.Time) error {
	return os.Chtimes(path, at, at)
}
