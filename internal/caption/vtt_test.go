package caption

import (
	"strings"
	"testing"
)

const sampleVTT = `WEBVTT

1
00:00:01.000 --> 00:00:03.500
Hello there

2
00:00:04.000 --> 00:00:06.000
Two line
cue text

00:00:07.250 --> 00:00:09.000
No index number
`

func TestParseVTT(t *testing.T) {
	fragments := ParseVTT(sampleVTT)
	if len(fragments) != 3 {
		t.Fatalf("got %d fragments, want 3", len(fragments))
	}

	if fragments[0].Start != 1.0 || fragments[0].End != 3.5 {
		t.Errorf("fragment 0 timing = %v-%v, want 1-3.5", fragments[0].Start, fragments[0].End)
	}
	if fragments[0].Text != "Hello there" {
		t.Errorf("fragment 0 text = %q", fragments[0].Text)
	}
	if fragments[1].Text != "Two line\ncue text" {
		t.Errorf("fragment 1 text = %q", fragments[1].Text)
	}
	if fragments[2].Start != 7.25 {
		t.Errorf("fragment 2 start = %v, want 7.25", fragments[2].Start)
	}
}

func TestParseVTTCommaTimestamps(t *testing.T) {
	content := "WEBVTT\n\n00:00:01,500 --> 00:00:02,000\nSRT style\n"
	fragments := ParseVTT(content)
	if len(fragments) != 1 || fragments[0].Start != 1.5 {
		t.Fatalf("fragments = %v, want one starting at 1.5", fragments)
	}
}

func TestParseVTTEmpty(t *testing.T) {
	if got := ParseVTT("WEBVTT\n"); len(got) != 0 {
		t.Errorf("got %d fragments from header-only content", len(got))
	}
	if got := ParseVTT(""); len(got) != 0 {
		t.Errorf("got %d fragments from empty content", len(got))
	}
}

func TestWriteVTTRoundTrip(t *testing.T) {
	original := ParseVTT(sampleVTT)
	out := WriteVTT(original)

	if !strings.HasPrefix(out, "WEBVTT\n\n") {
		t.Error("output missing WEBVTT header")
	}

	reparsed := ParseVTT(out)
	if len(reparsed) != len(original) {
		t.Fatalf("round trip changed fragment count: %d != %d", len(reparsed), len(original))
	}
	for i := range original {
		if reparsed[i] != original[i] {
			t.Errorf("fragment %d changed: %+v != %+v", i, reparsed[i], original[i])
		}
	}
}
