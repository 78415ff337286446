package llm

import (
	"errors"
	"testing"
)

func TestNormalizeOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain object", raw: `{"insured":{"name":"Foo Corp"}}`, want: `{"insured":{"name":"Foo Corp"}}`},
		{name: "whitespace", raw: "\n  {\"a\":1}\n", want: `{"a":1}`},
		{name: "json fence", raw: "```json\n{\"insured\":{\"name\":\"Foo\"}}\n```", want: `{"insured":{"name":"Foo"}}`},
		{name: "bare fence", raw: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "array", raw: `[1,2]`, wantErr: true},
		{name: "prose", raw: "Here is the JSON you asked for", wantErr: true},
		{name: "empty", raw: "   ", wantErr: true},
		{name: "off-schema object", raw: `{"insured":"Foo Corp"}`, want: `{"insured":"Foo Corp"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeOutput(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeOutput: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCheckSchemaAcceptsFullCertificate(t *testing.T) {
	doc := `{
		"producer": {"name": "Acme Brokers", "address": "1 Main St"},
		"insured": {"name": "Foo Corp", "address": null},
		"certificate_holder": {"name": "Real Estate Co", "address": "9 Elm"},
		"commercial_general_liability": {
			"insurer_name": "Big Insurer",
			"policy_number": "CGL-1",
			"effective_date": {"start": "01/01/2025", "end": "01/01/2026"},
			"each_occurrence": "$1,000,000",
			"additional_insured": "Y"
		},
		"automobile_liability": {"effective_date": "01/01/2025 - 01/01/2026", "combined_single_limit": 1000000},
		"description_of_operations": {"full_text": "Ops", "addresses": ["9 Elm"], "entitlement": "AI"},
		"notice_of_cancellation": "Should any of the above policies be cancelled...",
		"extra_section": {"anything": true}
	}`
	if err := CheckSchema([]byte(doc)); err != nil {
		t.Fatalf("CheckSchema: %v", err)
	}
}

func TestCheckSchemaReportsShapeMismatch(t *testing.T) {
	for _, doc := range []string{`{"insured":"Foo Corp Inc"}`, `{"producer":{"name":["a"]}}`} {
		if err := ValidateArtifact([]byte(doc)); err != nil {
			t.Fatalf("ValidateArtifact(%s): %v", doc, err)
		}
		if err := CheckSchema([]byte(doc)); err == nil {
			t.Fatalf("expected schema mismatch for %s", doc)
		}
	}
}

func TestValidateArtifactRejectsNonObject(t *testing.T) {
	if err := ValidateArtifact([]byte(`"text"`)); !errors.Is(err, ErrNotObject) {
		t.Fatalf("expected ErrNotObject, got %v", err)
	}
	if err := ValidateArtifact([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Fatal("expected trailing data error")
	}
	if err := CheckSchema([]byte(`[1]`)); !errors.Is(err, ErrNotObject) {
		t.Fatalf("expected ErrNotObject from CheckSchema, got %v", err)
	}
}
