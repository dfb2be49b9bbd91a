package pricing

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseFeed(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantHeaders []string
		wantRows    [][]string
		wantErr     bool
	}{
		{
			name:        "simple feed",
			input:       "SKU,Cost\nA-1,4.20\nA-2,5.10\n",
			wantHeaders: []string{"SKU", "Cost"},
			wantRows:    [][]string{{"A-1", "4.20"}, {"A-2", "5.10"}},
		},
		{
			name:        "byte order mark stripped",
			input:       "\uFEFFSKU,Cost\nA-1,4.20\n",
			wantHeaders: []string{"SKU", "Cost"},
			wantRows:    [][]string{{"A-1", "4.20"}},
		},
		{
			name:        "quoted field with comma",
			input:       "SKU,Name\nA-1,\"Widget, large\"\n",
			wantHeaders: []string{"SKU", "Name"},
			wantRows:    [][]string{{"A-1", "Widget, large"}},
		},
		{
			name:        "quoted field with embedded newline",
			input:       "SKU,Name\nA-1,\"line one\nline two\"\n",
			wantHeaders: []string{"SKU", "Name"},
			wantRows:    [][]string{{"A-1", "line one\nline two"}},
		},
		{
			name:        "doubled quotes inside field",
			input:       "SKU,Name\nA-1,\"5\"\" bolt\"\n",
			wantHeaders: []string{"SKU", "Name"},
			wantRows:    [][]string{{"A-1", `5" bolt`}},
		},
		{
			name:        "varying column counts",
			input:       "SKU,Cost,Name\nA-1,4.20\nA-2,5.10,Widget,extra\n",
			wantHeaders: []string{"SKU", "Cost", "Name"},
			wantRows:    [][]string{{"A-1", "4.20"}, {"A-2", "5.10", "Widget", "extra"}},
		},
		{
			name:        "blank lines skipped",
			input:       "SKU,Cost\nA-1,4.20\n,\n\nA-2,5.10\n",
			wantHeaders: []string{"SKU", "Cost"},
			wantRows:    [][]string{{"A-1", "4.20"}, {"A-2", "5.10"}},
		},
		{
			name:        "header only",
			input:       "SKU,Cost\n",
			wantHeaders: []string{"SKU", "Cost"},
		},
		{name: "empty input", input: "", wantErr: true},
		{name: "whitespace only", input: "  \n\t\n", wantErr: true},
		{name: "bom only", input: "\uFEFF", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed, err := ParseFeed(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseFeed() succeeded, want error")
				}
				if !errors.Is(err, ErrParse) {
					t.Fatalf("ParseFeed() error = %v, want ErrParse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFeed() error = %v", err)
			}
			if !reflect.DeepEqual(feed.Headers, tt.wantHeaders) {
				t.Errorf("Headers = %v, want %v", feed.Headers, tt.wantHeaders)
			}
			if !reflect.DeepEqual(feed.Rows, tt.wantRows) {
				t.Errorf("Rows = %v, want %v", feed.Rows, tt.wantRows)
			}
		})
	}
}

func TestRawFeedCell(t *testing.T) {
	feed, err := ParseFeed("SKU,Cost,SKU\nA-1,4.20,dup\n")
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}

	row := feed.Rows[0]
	if got := feed.Cell(row, "Cost"); got != "4.20" {
		t.Errorf("Cell(Cost) = %q, want %q", got, "4.20")
	}
	// При дублирующихся заголовках выигрывает первое вхождение.
	if got := feed.Cell(row, "SKU"); got != "A-1" {
		t.Errorf("Cell(SKU) = %q, want first column %q", got, "A-1")
	}
	if got := feed.Cell(row, "Missing"); got != "" {
		t.Errorf("Cell(Missing) = %q, want empty", got)
	}
	if got := feed.Cell([]string{"short"}, "Cost"); got != "" {
		t.Errorf("Cell on short row = %q, want empty", got)
	}
	if !feed.HasHeader("Cost") || feed.HasHeader("Missing") {
		t.Error("HasHeader gave wrong answer")
	}
}

func TestRawFeedPreview(t *testing.T) {
	feed, err := ParseFeed("SKU,Cost\nA-1,4.20\nA-2,5.10\nA-3,6.00\n")
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}

	preview := feed.Preview(2)
	if len(preview) != 2 {
		t.Fatalf("Preview(2) returned %d rows, want 2", len(preview))
	}
	want := map[string]string{"SKU": "A-1", "Cost": "4.20"}
	if !reflect.DeepEqual(preview[0], want) {
		t.Errorf("Preview()[0] = %v, want %v", preview[0], want)
	}

	if got := feed.Preview(0); len(got) != 3 {
		t.Errorf("Preview(0) returned %d rows, want all 3", len(got))
	}
	if got := feed.Preview(100); len(got) != 3 {
		t.Errorf("Preview(100) returned %d rows, want all 3", len(got))
	}
}
