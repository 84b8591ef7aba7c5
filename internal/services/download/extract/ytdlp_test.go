package extract

import (
	"errors"
	"strings"
	"testing"

	"clipstream/internal/domain"
)

func TestClassifyRun(t *testing.T) {
	runErr := errors.New("exit status 1")

	tests := []struct {
		name        string
		output      string
		runErr      error
		wantErr     bool
		wantSizeCap bool
		wantReason  string
	}{
		{
			name:   "clean run",
			output: "[download] 100% of 12.34MiB",
		},
		{
			name:        "oversized file skipped",
			output:      "[download] file is larger than max-filesize (209715200 bytes)",
			wantErr:     true,
			wantSizeCap: true,
		},
		{
			name:        "oversized file with nonzero exit",
			output:      "aborting: max-filesize exceeded",
			runErr:      runErr,
			wantErr:     true,
			wantSizeCap: true,
		},
		{
			name:       "tool failure reports last line",
			output:     "[youtube] extracting\nERROR: video unavailable",
			runErr:     runErr,
			wantErr:    true,
			wantReason: "ERROR: video unavailable",
		},
		{
			name:    "tool failure with empty output",
			output:  "",
			runErr:  runErr,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyRun("https://example.com/v", 200, tc.output, tc.runErr)
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("classifyRun: %v", err)
				}
				return
			}

			var extractionErr *domain.ExtractionError
			if !errors.As(err, &extractionErr) {
				t.Fatalf("err = %v, want ExtractionError", err)
			}
			if extractionErr.ExceededSizeCap != tc.wantSizeCap {
				t.Fatalf("ExceededSizeCap = %v, want %v", extractionErr.ExceededSizeCap, tc.wantSizeCap)
			}
			if tc.wantReason != "" && !strings.Contains(extractionErr.Reason, tc.wantReason) {
				t.Fatalf("Reason = %q, want it to contain %q", extractionErr.Reason, tc.wantReason)
			}
		})
	}
}

func TestLastLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"single", "single"},
		{"first\nsecond\nthird", "third"},
		{"message\n\n  \n", "message"},
		{"  padded  \n", "padded"},
	}
	for _, tc := range tests {
		if got := lastLine(tc.in); got != tc.want {
			t.Errorf("lastLine(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewDefaultsBinary(t *testing.T) {
	if y := New(""); y.binary != "yt-dlp" {
		t.Fatalf("binary = %q, want yt-dlp", y.binary)
	}
	if y := New(" /usr/local/bin/yt-dlp "); y.binary != "/usr/local/bin/yt-dlp" {
		t.Fatalf("binary = %q, want trimmed path", y.binary)
	}
}
