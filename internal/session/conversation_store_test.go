package session

import (
	"testing"

	"confhub-chat-client/internal/dto"
)

func TestApplyListFullReplace(t *testing.T) {
	tests := []struct {
		name      string
		snapshots [][]dto.ConversationMetadata
		wantIds   []string
	}{
		{
			name: "single snapshot",
			snapshots: [][]dto.ConversationMetadata{
				{{Id: "a"}, {Id: "b"}},
			},
			wantIds: []string{"a", "b"},
		},
		{
			name: "later snapshot wins wholesale",
			snapshots: [][]dto.ConversationMetadata{
				{{Id: "a"}, {Id: "b"}, {Id: "c"}},
				{{Id: "c"}, {Id: "d"}},
			},
			wantIds: []string{"c", "d"},
		},
		{
			name: "empty snapshot clears",
			snapshots: [][]dto.ConversationMetadata{
				{{Id: "a"}},
				{},
			},
			wantIds: []string{},
		},
		{
			name: "same snapshot twice is idempotent",
			snapshots: [][]dto.ConversationMetadata{
				{{Id: "x"}, {Id: "y"}},
				{{Id: "x"}, {Id: "y"}},
			},
			wantIds: []string{"x", "y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewConversationStore()
			for _, snap := range tt.snapshots {
				s.ApplyList(snap)
			}

			got := s.List()
			if len(got) != len(tt.wantIds) {
				t.Fatalf("list length = %d, want %d", len(got), len(tt.wantIds))
			}
			for i, id := range tt.wantIds {
				if got[i].Id != id {
					t.Errorf("list[%d].Id = %q, want %q", i, got[i].Id, id)
				}
			}
		})
	}
}

func TestListReturnsCopy(t *testing.T) {
	s := NewConversationStore()
	s.ApplyList([]dto.ConversationMetadata{{Id: "a", Title: "one"}})

	got := s.List()
	got[0].Title = "mutated"

	if s.List()[0].Title != "one" {
		t.Error("mutating the returned slice leaked into the store")
	}
}

func TestKnown(t *testing.T) {
	s := NewConversationStore()
	s.ApplyList([]dto.ConversationMetadata{{Id: "a"}, {Id: "b"}})

	if !s.Known("a") {
		t.Error("Known(a) = false, want true")
	}
	if s.Known("z") {
		t.Error("Known(z) = true, want false")
	}
}

func TestActiveDefaultsToEmpty(t *testing.T) {
	s := NewConversationStore()
	if s.Active() != "" {
		t.Errorf("fresh store Active() = %q, want empty", s.Active())
	}
	s.SetActive("c1")
	if s.Active() != "c1" {
		t.Errorf("Active() = %q, want c1", s.Active())
	}
}
