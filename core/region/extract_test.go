package region

import (
	"strings"
	"testing"
)

const genesis = "\\id GEN\n" +
	"\\h Genesis\n" +
	"\\mt Genesis\n" +
	"\\c 1\n" +
	"\\p\n" +
	"\\v 1 In the beginning God created the heaven and the earth.\n" +
	"\\v 2 And the earth was without form, and void.\n" +
	"\\c 2\n" +
	"\\s The seventh day\n" +
	"\\p\n" +
	"\\v 1 Thus the heavens and the earth were finished.\n" +
	"\\v 2 And on the seventh day God ended his work.\n" +
	"\\v 3 And God blessed the seventh day.\n"

const chapterTwo = "\\c 2\n" +
	"\\s The seventh day\n" +
	"\\p\n" +
	"\\v 1 Thus the heavens and the earth were finished.\n" +
	"\\v 2 And on the seventh day God ended his work.\n" +
	"\\v 3 And God blessed the seventh day.\n"

func TestExtractChapter(t *testing.T) {
	tests := []struct {
		name    string
		chapter string
		text    string
		want    string
	}{
		{
			name:    "first chapter absorbs book header",
			chapter: "1",
			text:    genesis,
			want: "\\id GEN\n\\h Genesis\n\\mt Genesis\n\\c 1\n\\p\n" +
				"\\v 1 In the beginning God created the heaven and the earth.\n" +
				"\\v 2 And the earth was without form, and void.\n",
		},
		{
			name:    "later chapter excludes header",
			chapter: "2",
			text:    genesis,
			want:    chapterTwo,
		},
		{
			name:    "missing chapter",
			chapter: "3",
			text:    genesis,
			want:    "",
		},
		{
			name:    "label match is exact",
			chapter: "1",
			text:    "\\c 10\nten\n\\c 11\neleven\n",
			want:    "",
		},
		{
			name:    "third token does not affect match",
			chapter: "4",
			text:    "\\c 3\nthree\n\\c 4 4a\nfour\n",
			want:    "\\c 4 4a\nfour\n",
		},
		{
			name:    "empty body still returns marker",
			chapter: "2",
			text:    "\\c 1\none\n\\c 2 \\c 3\nthree\n",
			want:    "\\c 2 ",
		},
		{
			name:    "unlabelled marker is skipped",
			chapter: "2",
			text:    "\\c \nstray\n\\c 2\nbody\n",
			want:    "\\c 2\nbody\n",
		},
		{
			name:    "similar markers are not chapters",
			chapter: "1",
			text:    "\\cl Psalm\n\\c 1\n\\cp A\n\\ca 2\nbody\n",
			want:    "\\cl Psalm\n\\c 1\n\\cp A\n\\ca 2\nbody\n",
		},
		{
			name:    "no markers at all",
			chapter: "1",
			text:    "plain text without structure\n",
			want:    "",
		},
		{
			name:    "empty document",
			chapter: "1",
			text:    "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractChapter(tt.chapter, tt.text); got != tt.want {
				t.Errorf("ExtractChapter(%q) = %q, want %q", tt.chapter, got, tt.want)
			}
		})
	}
}

func TestExtractChapter_PreambleOnlyForFirst(t *testing.T) {
	header := "\\id EXO\n\\h Exodus\n"
	text := header + "\\c 1\none\n\\c 2\ntwo\n\\c 3\nthree\n"

	if got := ExtractChapter("1", text); !strings.HasPrefix(got, header) {
		t.Errorf("chapter 1 should start with the header, got %q", got)
	}
	for _, id := range []string{"2", "3"} {
		got := ExtractChapter(id, text)
		if strings.Contains(got, "\\id") || !strings.HasPrefix(got, "\\c "+id) {
			t.Errorf("chapter %s should start at its marker, got %q", id, got)
		}
	}
}

func TestExtractVerses(t *testing.T) {
	tests := []struct {
		name   string
		v1, v2 string
		text   string
		want   string
	}{
		{
			name: "inner range",
			v1:   "2", v2: "3",
			text: chapterTwo,
			want: "\\v 2 And on the seventh day God ended his work.\n" +
				"\\v 3 And God blessed the seventh day.\n",
		},
		{
			name: "single verse",
			v1:   "2", v2: "2",
			text: chapterTwo,
			want: "\\v 2 And on the seventh day God ended his work.\n",
		},
		{
			name: "first verse keeps chapter heading",
			v1:   "1", v2: "1",
			text: chapterTwo,
			want: "\\c 2\n\\s The seventh day\n\\p\n" +
				"\\v 1 Thus the heavens and the earth were finished.\n",
		},
		{
			name: "start missing falls back to chapter",
			v1:   "7", v2: "3",
			text: chapterTwo,
			want: chapterTwo,
		},
		{
			name: "end missing falls back to chapter",
			v1:   "3", v2: "5",
			text: chapterTwo,
			want: chapterTwo,
		},
		{
			name: "reversed range reads in document order",
			v1:   "3", v2: "2",
			text: chapterTwo,
			want: "\\v 2 And on the seventh day God ended his work.\n" +
				"\\v 3 And God blessed the seventh day.\n",
		},
		{
			name: "verses sharing a line",
			v1:   "2", v2: "2",
			text: "\\c 1\n\\v 1 a \\v 2 b\n\\v 3 c\n",
			want: "\\v 2 b\n",
		},
		{
			name: "verse bridge label",
			v1:   "1-2", v2: "1-2",
			text: "\\c 1\n\\v 1-2 bridged\n\\v 3 c\n",
			want: "\\c 1\n\\v 1-2 bridged\n",
		},
		{
			name: "alternate verse markers are ignored",
			v1:   "1", v2: "1",
			text: "\\c 1\n\\v 1 \\va 2\\va* one\n\\vp 1b\n\\v 2 two\n",
			want: "\\c 1\n\\v 1 \\va 2\\va* one\n\\vp 1b\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractVerses(tt.v1, tt.v2, tt.text); got != tt.want {
				t.Errorf("ExtractVerses(%q, %q) = %q, want %q", tt.v1, tt.v2, got, tt.want)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		sel  Selector
		want string
	}{
		{
			name: "whole chapter",
			sel:  Selector{Chapter: "2"},
			want: chapterTwo,
		},
		{
			name: "verse range",
			sel:  Selector{Chapter: "2", Verses: &VerseRange{Start: "3", End: "3"}},
			want: "\\v 3 And God blessed the seventh day.\n",
		},
		{
			name: "missing chapter ignores verses",
			sel:  Selector{Chapter: "9", Verses: &VerseRange{Start: "1", End: "2"}},
			want: "",
		},
		{
			name: "verses outside chapter degrade to chapter",
			sel:  Selector{Chapter: "2", Verses: &VerseRange{Start: "3", End: "5"}},
			want: chapterTwo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.sel, genesis); got != tt.want {
				t.Errorf("Extract(%s) = %q, want %q", tt.sel, got, tt.want)
			}
		})
	}
}

func TestExtract_Deterministic(t *testing.T) {
	sels := []Selector{
		{Chapter: "1"},
		{Chapter: "2", Verses: &VerseRange{Start: "1", End: "2"}},
		{Chapter: "5"},
	}
	for _, sel := range sels {
		first := Extract(sel, genesis)
		for i := 0; i < 5; i++ {
			if got := Extract(sel, genesis); got != first {
				t.Fatalf("Extract(%s) not deterministic: %q vs %q", sel, got, first)
			}
		}
	}
}
