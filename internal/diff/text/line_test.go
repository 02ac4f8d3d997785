package text_test

import (
	"fmt"
	"runtime"
	"testing"
	"ui-regression/internal/diff/text"

	"github.com/google/go-cmp/cmp"
)

func TestLineDiffCalculate(t *testing.T) {
	type in struct {
		expected string
		actual   string
	}

	tests := []struct {
		name     string
		receiver *text.LineDiff
		in       in
		want     *text.DiffResult
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			text.NewLineDiff(false),
			in{
				"",
				"",
			},
			&text.DiffResult{
				Diff:       "",
				Changed:    0,
				DiffAmount: 0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			text.NewLineDiff(false),
			in{
				"a\nb\nc",
				"a\nb\nc",
			},
			&text.DiffResult{
				Diff:       "  a\n  b\n  c",
				Changed:    0,
				DiffAmount: 0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			text.NewLineDiff(false),
			in{
				"a\nb\nc",
				"a\nx\nc",
			},
			&text.DiffResult{
				Diff:       "  a\n- b\n+ x\n  c",
				Changed:    2,
				DiffAmount: 2.0 / 6.0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			text.NewLineDiff(false),
			in{
				"",
				"a\nb",
			},
			&text.DiffResult{
				Diff:       "+ a\n+ b",
				Changed:    2,
				DiffAmount: 1,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			text.NewLineDiff(true),
			in{
				"a \r\n b",
				"a\nb",
			},
			&text.DiffResult{
				Diff:       "  a\n  b",
				Changed:    0,
				DiffAmount: 0,
			},
		},
	}
	for _, tt := range tests {
		name := tt.name
		receiver := tt.receiver
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := receiver.Calculate(in.expected, in.actual)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}
