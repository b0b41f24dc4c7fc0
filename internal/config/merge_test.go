package config

import (
	"reflect"
	"testing"
)

func TestMergeArgs(t *testing.T) {
	tests := []struct {
		name    string
		base    []string
		patches []*ArgsPatch
		want    []string
	}{
		{
			name: "nil patches keep base",
			base: []string{"--stats"},
			want: []string{"--stats"},
		},
		{
			name:    "append in order",
			base:    []string{"--stats"},
			patches: []*ArgsPatch{{Append: []string{"--list"}}, {Append: []string{"--json"}}},
			want:    []string{"--stats", "--list", "--json"},
		},
		{
			name:    "remove drops every occurrence",
			base:    []string{"--stats", "--list", "--stats"},
			patches: []*ArgsPatch{{Remove: []string{"--stats"}}},
			want:    []string{"--list"},
		},
		{
			name:    "append then remove across patches",
			base:    []string{"--stats"},
			patches: []*ArgsPatch{{Append: []string{"--noatime"}}, {Append: []string{"--list"}, Remove: []string{"--noatime"}}},
			want:    []string{"--stats", "--list"},
		},
		{
			name:    "remove of absent arg is a no-op",
			base:    []string{"--stats"},
			patches: []*ArgsPatch{{Remove: []string{"--missing"}}},
			want:    []string{"--stats"},
		},
		{
			name:    "nil patch entries skipped",
			base:    []string{"--stats"},
			patches: []*ArgsPatch{nil, {Append: []string{"--list"}}},
			want:    []string{"--stats", "--list"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeArgs(tt.base, tt.patches...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MergeArgs = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeArgs_DoesNotMutateBase(t *testing.T) {
	base := []string{"--stats", "--list"}
	MergeArgs(base, &ArgsPatch{Remove: []string{"--stats"}})
	if base[0] != "--stats" || base[1] != "--list" {
		t.Errorf("base mutated: %v", base)
	}
}
