package preview

import (
	"testing"

	"ai-sitegen-api/internal/domain/entity"
)

func TestClassify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name     string
		raw      string
		wantKind entity.PreviewErrorKind
		wantAuto bool
	}{
		{
			name:     "chunk load error",
			raw:      "ChunkLoadError: Loading chunk 3 failed",
			wantKind: entity.PreviewErrorRuntime,
			wantAuto: true,
		},
		{
			name:     "dynamic import failure",
			raw:      "TypeError: Failed to fetch dynamically imported module: https://preview/app.js",
			wantKind: entity.PreviewErrorRuntime,
			wantAuto: true,
		},
		{
			name:     "mime type mismatch",
			raw:      `Expected a JavaScript module script but the server responded with a MIME type of "text/html"`,
			wantKind: entity.PreviewErrorLoad,
			wantAuto: true,
		},
		{
			name:     "minified react error",
			raw:      "Error: Minified React error #310",
			wantKind: entity.PreviewErrorRuntime,
			wantAuto: true,
		},
		{
			name:     "application error page",
			raw:      "Application error: a client-side exception has occurred",
			wantKind: entity.PreviewErrorRuntime,
			wantAuto: true,
		},
		{
			name:     "network error code",
			raw:      "GET https://preview/1 net::ERR_CONNECTION_REFUSED",
			wantKind: entity.PreviewErrorNetwork,
			wantAuto: false,
		},
		{
			name:     "generic type error",
			raw:      "TypeError: Cannot read properties of undefined",
			wantKind: entity.PreviewErrorRuntime,
			wantAuto: false,
		},
		{
			name:     "generic reference error",
			raw:      "ReferenceError: foo is not defined",
			wantKind: entity.PreviewErrorRuntime,
			wantAuto: false,
		},
		{
			name:     "cors blocked font is auto recoverable",
			raw:      "Access to font at 'https://cdn/x.woff2' has been blocked by CORS policy",
			wantKind: entity.PreviewErrorNetwork,
			wantAuto: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.raw)
			if got == nil {
				t.Fatalf("Classify(%q) = nil, want kind %s", tt.raw, tt.wantKind)
			}
			if got.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", got.Kind, tt.wantKind)
			}
			if got.Message != tt.raw {
				t.Errorf("message = %q, want original raw text", got.Message)
			}
			if auto := c.IsAutoRecoverable(got); auto != tt.wantAuto {
				t.Errorf("IsAutoRecoverable = %v, want %v", auto, tt.wantAuto)
			}
		})
	}
}

func TestClassifyNoMatch(t *testing.T) {
	c := NewClassifier()

	for _, raw := range []string{
		"",
		"   ",
		"user clicked the about page",
		"fetched 3 blog posts",
	} {
		if got := c.Classify(raw); got != nil {
			t.Errorf("Classify(%q) = %+v, want nil", raw, got)
		}
	}
}

func TestIsAutoRecoverableNil(t *testing.T) {
	c := NewClassifier()
	if c.IsAutoRecoverable(nil) {
		t.Error("IsAutoRecoverable(nil) = true, want false")
	}
}

func TestInspectDocument(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name    string
		doc     string
		wantHit bool
	}{
		{
			name:    "application error page",
			doc:     `<html><body><h1>Application error: a client-side exception has occurred</h1></body></html>`,
			wantHit: true,
		},
		{
			name:    "server error status text",
			doc:     "500 Internal Server Error",
			wantHit: true,
		},
		{
			name:    "error title",
			doc:     `<html><head><title>Error - something broke</title></head><body></body></html>`,
			wantHit: true,
		},
		{
			name:    "error marker attribute",
			doc:     `<div data-error="boom"></div>`,
			wantHit: true,
		},
		{
			name:    "healthy page",
			doc:     `<html><head><title>My Portfolio</title></head><body><h1>Welcome</h1></body></html>`,
			wantHit: false,
		},
		{
			name:    "empty document",
			doc:     "",
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.InspectDocument(tt.doc)
			if tt.wantHit && got == nil {
				t.Fatal("InspectDocument = nil, want runtime_error")
			}
			if !tt.wantHit && got != nil {
				t.Fatalf("InspectDocument = %+v, want nil", got)
			}
			if got != nil && got.Kind != entity.PreviewErrorRuntime {
				t.Errorf("kind = %s, want %s", got.Kind, entity.PreviewErrorRuntime)
			}
		})
	}
}
