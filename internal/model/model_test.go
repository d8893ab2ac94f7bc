package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestKindFromTitle(t *testing.T) {
	tests := []struct {
		title  string
		want   FileKind
		wantOK bool
	}{
		{"Lecture 1.pdf", FileKindPDF, true},
		{"SLIDES.PPTX", FileKindPPTX, true},
		{"notes.Pdf ", FileKindPDF, true},
		{"essay.docx", "", false},
		{"pdf", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got, ok := KindFromTitle(tt.title)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("KindFromTitle(%q) = %q, %v; want %q, %v", tt.title, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestQuestionUnmarshal(t *testing.T) {
	t.Run("answer options", func(t *testing.T) {
		raw := `{"question":"Q?","hint":"h","answerOptions":[
			{"text":"a","rationale":"because","isCorrect":false},
			{"text":"b","isCorrect":true}]}`
		var q Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if q.Shape != ShapeOptions {
			t.Errorf("shape = %q, want %q", q.Shape, ShapeOptions)
		}
		if len(q.Options) != 2 || !q.Options[1].IsCorrect || q.Options[0].Rationale != "because" {
			t.Errorf("unexpected options: %+v", q.Options)
		}
		if q.Hint != "h" {
			t.Errorf("hint = %q", q.Hint)
		}
	})

	t.Run("legacy", func(t *testing.T) {
		raw := `{"question":"Capital of France?","options":["Berlin","Paris","Rome"],"correct":"Paris"}`
		var q Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if q.Shape != ShapeLegacy {
			t.Errorf("shape = %q, want %q", q.Shape, ShapeLegacy)
		}
		for _, o := range q.Options {
			if o.IsCorrect != (o.Text == "Paris") {
				t.Errorf("option %q correct = %v", o.Text, o.IsCorrect)
			}
		}
	})

	t.Run("options holding objects", func(t *testing.T) {
		raw := `{"question":"Q","options":[{"text":"x","isCorrect":true}]}`
		var q Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if q.Shape != ShapeOptions || len(q.Options) != 1 || !q.Options[0].IsCorrect {
			t.Errorf("unexpected question: %+v", q)
		}
	})

	t.Run("bad options", func(t *testing.T) {
		var q Question
		if err := json.Unmarshal([]byte(`{"question":"Q","options":42}`), &q); err == nil {
			t.Error("expected error for numeric options")
		}
	})

	t.Run("marshal emits normalized layout", func(t *testing.T) {
		var q Question
		_ = json.Unmarshal([]byte(`{"question":"Q","options":["a"],"correct":"a"}`), &q)
		out, err := json.Marshal(q)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var back map[string]any
		_ = json.Unmarshal(out, &back)
		if _, ok := back["answerOptions"]; !ok {
			t.Errorf("normalized JSON lacks answerOptions: %s", out)
		}
	})
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		pct  int
		want Tier
	}{
		{100, TierPerfect},
		{99, TierExcellent},
		{80, TierExcellent},
		{79, TierGood},
		{70, TierGood},
		{60, TierGood},
		{59, TierReview},
		{0, TierReview},
	}
	for _, tt := range tests {
		if got := TierFor(tt.pct); got != tt.want {
			t.Errorf("TierFor(%d) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestPartialDataError(t *testing.T) {
	dl := &DownloadError{FileID: "f1", StatusCode: 404}
	content := &CourseContent{CourseID: "c1"}
	if content.Err() != nil {
		t.Fatalf("expected nil error without failures")
	}
	content.Partial = &PartialDataError{CourseID: "c1", Failures: []*FetchError{
		{Op: "file f1", Err: dl},
	}}

	err := content.Err()
	if err == nil {
		t.Fatal("expected partial data error")
	}
	var got *DownloadError
	if !errors.As(err, &got) || got.FileID != "f1" {
		t.Errorf("errors.As did not reach DownloadError: %v", err)
	}
}
