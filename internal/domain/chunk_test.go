package domain

import "testing"

func TestNewChunk_Validation(t *testing.T) {
	cases := []struct {
		name       string
		content    string
		sourceFile string
		pageNumber int
		wantErr    bool
	}{
		{"valid", "some text", "doc.pdf", 1, false},
		{"empty content", "", "doc.pdf", 1, true},
		{"whitespace content", "   \n", "doc.pdf", 1, true},
		{"empty source file", "some text", "", 1, true},
		{"zero page", "some text", "doc.pdf", 0, true},
		{"negative page", "some text", "doc.pdf", -3, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewChunk(tc.content, tc.sourceFile, tc.pageNumber, nil)
			if (err != nil) != tc.wantErr {
				t.Errorf("NewChunk: err=%v, wantErr=%v", err, tc.wantErr)
			}
		})
	}
}

func TestNewChunk_ClonesMetadata(t *testing.T) {
	meta := map[string]string{"filename": "doc.pdf"}
	chunk, err := NewChunk("text", "doc.pdf", 2, meta)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}

	meta["filename"] = "mutated.pdf"
	if got := chunk.Metadata()["filename"]; got != "doc.pdf" {
		t.Errorf("chunk metadata followed caller mutation: %q", got)
	}

	if chunk.Content() != "text" || chunk.SourceFile() != "doc.pdf" || chunk.PageNumber() != 2 {
		t.Errorf("unexpected chunk fields: %q %q %d", chunk.Content(), chunk.SourceFile(), chunk.PageNumber())
	}
}

func TestReconstructChunk_SkipsValidation(t *testing.T) {
	chunk := ReconstructChunk("", "", 0, nil)
	if chunk.Content() != "" || chunk.PageNumber() != 0 {
		t.Errorf("reconstruction altered fields: %q %d", chunk.Content(), chunk.PageNumber())
	}
}

func TestSearchResult_WithPreview(t *testing.T) {
	chunk := ReconstructChunk("full content", "doc.pdf", 3, nil)
	result := NewSearchResult(chunk, 0.87)

	if result.Preview() != "" {
		t.Errorf("fresh result has preview %q", result.Preview())
	}

	withPreview := result.WithPreview("full co...")
	if withPreview.Preview() != "full co..." {
		t.Errorf("preview = %q", withPreview.Preview())
	}
	if result.Preview() != "" {
		t.Error("WithPreview mutated the original result")
	}

	if withPreview.Content() != "full content" || withPreview.SourceFile() != "doc.pdf" ||
		withPreview.PageNumber() != 3 || withPreview.Score() != 0.87 {
		t.Errorf("copy lost fields: %q %q %d %v",
			withPreview.Content(), withPreview.SourceFile(), withPreview.PageNumber(), withPreview.Score())
	}
}
