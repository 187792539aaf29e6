package memory_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/flemzord/recall/internal/memory"
)

func TestParseFacts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    map[string]any
		wantErr bool
	}{
		{name: "plain object", in: `{"name":"Ada"}`, want: map[string]any{"name": "Ada"}},
		{name: "json fence", in: "```json\n{\"city\": \"Paris\"}\n```", want: map[string]any{"city": "Paris"}},
		{name: "bare fence", in: "```\n{\"a\": [\"x\"]}\n```", want: map[string]any{"a": []any{"x"}}},
		{name: "whitespace", in: "  \n{}\n ", want: map[string]any{}},
		{name: "single line fence", in: "```json {\"k\":\"v\"}```", want: map[string]any{"k": "v"}},
		{name: "array", in: `["a","b"]`, wantErr: true},
		{name: "prose", in: "The user likes cats.", wantErr: true},
		{name: "null", in: "null", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "empty fence", in: "```json\n```", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := memory.ParseFacts(tt.in)
			if tt.wantErr {
				if !errors.Is(err, memory.ErrUnparseableFacts) {
					t.Fatalf("err = %v, want ErrUnparseableFacts", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestNopExtractor(t *testing.T) {
	t.Parallel()
	facts, err := memory.NopExtractor{}.Extract(context.Background(), "anything")
	if err != nil || facts == nil || len(facts) != 0 {
		t.Errorf("Extract = %v, %v; want empty map", facts, err)
	}
}
