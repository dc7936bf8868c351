// agora/utils/sanitize_test.go
package utils

import (
	"strings"
	"testing"
)

func TestRenderBody(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		contains string
		absent   string
	}{
		{"Script removed", `hi<script>alert(1)</script>`, "hi", "<script"},
		{"Bold kept", `<b>bold</b>`, "<b>bold</b>", ""},
		{"Event handler removed", `<a href="/x" onclick="evil()">x</a>`, `href="/x"`, "onclick"},
		{"Newlines become breaks", "one\ntwo", "one<br>two", "\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := string(RenderBody(tc.input))
			if !strings.Contains(got, tc.contains) {
				t.Errorf("Expected %q to contain %q", got, tc.contains)
			}
			if tc.absent != "" && strings.Contains(got, tc.absent) {
				t.Errorf("Expected %q not to contain %q", got, tc.absent)
			}
		})
	}
}

func TestStripTags(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{"<i>plain</i> title", "plain title"},
		{"Tom & Jerry don't <b>stop</b>", "Tom & Jerry don't stop"},
		{"a &lt; b", "a < b"},
		{"<script>x</script>ok", "ok"},
	}
	for _, tc := range testCases {
		if got := StripTags(tc.input); got != tc.want {
			t.Errorf("StripTags(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
