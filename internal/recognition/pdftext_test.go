package recognition

import (
	"context"
	"strings"
	"testing"
)

func TestPDFTextReadsTextLayer(t *testing.T) {
	data := buildPDF(t, "Foo Corp", "Policy CGL-1")
	text, err := NewPDFText().Recognize(context.Background(), data)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if !strings.HasPrefix(text, "### Page 1\n") || !strings.Contains(text, "### Page 2\n") {
		t.Fatalf("missing page headers:\n%s", text)
	}
	if !strings.Contains(text, "Foo Corp") {
		t.Fatalf("missing page text:\n%s", text)
	}
}

func TestPDFTextRejectsGarbage(t *testing.T) {
	if _, err := NewPDFText().Recognize(context.Background(), []byte("not a pdf")); err == nil {
		t.Fatal("expected error")
	}
}
