package completion

import (
	"reflect"
	"testing"
)

type staticLister []string

func (lister staticLister) ListCommands() []string {
	return append([]string(nil), lister...)
}

func TestComplete(t *testing.T) {
	t.Parallel()

	lister := staticLister{"build", "bump", "test"}
	testCases := []struct {
		name     string
		prefix   string
		parsed   []string
		expected []string
	}{
		{name: "all_commands", prefix: "", parsed: nil, expected: []string{"build", "bump", "test", "help"}},
		{name: "filtered_by_prefix", prefix: "b", parsed: nil, expected: []string{"build", "bump"}},
		{name: "help_prefix", prefix: "he", parsed: nil, expected: []string{"help"}},
		{name: "after_help", prefix: "t", parsed: []string{"help"}, expected: []string{"test"}},
		{name: "after_long_help_flag", prefix: "", parsed: []string{"--help"}, expected: []string{"build", "bump", "test", "help"}},
		{name: "after_short_help_flag", prefix: "bu", parsed: []string{"-h"}, expected: []string{"build", "bump"}},
		{name: "command_arguments", prefix: "", parsed: []string{"build"}, expected: nil},
		{name: "no_match", prefix: "x", parsed: nil, expected: nil},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			candidates := Complete(lister, testCase.prefix, testCase.parsed)
			if !reflect.DeepEqual(candidates, testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, candidates)
			}
		})
	}
}
