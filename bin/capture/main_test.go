package main

import (
	"fmt"
	"image"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseRectangles(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []image.Rectangle
		wantErr bool
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"",
			nil,
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"10,20,30,40",
			[]image.Rectangle{image.Rect(10, 20, 40, 60)},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"0,0,5,5; 1, 2, 3, 4;",
			[]image.Rectangle{image.Rect(0, 0, 5, 5), image.Rect(1, 2, 4, 6)},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"1,2,3",
			nil,
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"a,b,c,d",
			nil,
			true,
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		wantErr := tt.wantErr
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := parseRectangles(in)
			if diff := cmp.Diff(wantErr, err != nil); diff != "" {
				t.Fatalf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	if diff := cmp.Diff([]string{".ad", "#clock"}, splitList(" .ad, ,#clock ")); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string(nil), splitList("")); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
