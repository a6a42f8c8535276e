package container

import (
	"reflect"
	"testing"

	"cardboard/internal/model"
)

func fixture() []model.Card {
	dd := "dd"
	return []model.Card{
		{ID: "b", Type: model.CardTypeLink, SortKey: "r"},
		{ID: "a", Type: model.CardTypeText, SortKey: "c"},
		{ID: "dd", Type: model.CardTypeDropdown, SortKey: "i"},
		{ID: "c1", Type: model.CardTypeLink, ParentID: &dd, SortKey: "m"},
		{ID: "c0", Type: model.CardTypeAudio, ParentID: &dd, SortKey: "f"},
	}
}

func cardIDs(cards []model.Card) []string {
	out := make([]string, len(cards))
	for i := range cards {
		out[i] = cards[i].ID
	}
	return out
}

func TestCardsIn_SortsByKeyWithinContainer(t *testing.T) {
	all := fixture()
	if got, want := cardIDs(CardsIn(Canvas, all)), []string{"a", "dd", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("canvas: expected %v, got %v", want, got)
	}
	if got, want := cardIDs(CardsIn("dd", all)), []string{"c0", "c1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("dropdown: expected %v, got %v", want, got)
	}
}

func TestCardsIn_TieBrokenByID(t *testing.T) {
	all := []model.Card{
		{ID: "z", Type: model.CardTypeLink, SortKey: "m"},
		{ID: "y", Type: model.CardTypeLink, SortKey: "m"},
	}
	if got, want := cardIDs(CardsIn(Canvas, all)), []string{"y", "z"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCanAcceptDrop(t *testing.T) {
	all := fixture()
	all = append(all, model.Card{ID: "dd2", Type: model.CardTypeDropdown, SortKey: "w"})

	cases := []struct {
		card, target string
		want         bool
	}{
		{"a", "dd", true},
		{"a", Canvas, true},
		{"c1", Canvas, true},
		{"dd2", "dd", false},
		{"dd2", Canvas, true},
		{"a", "gone", false},
		{"a", "b", false}, // not a container
		{"missing", Canvas, false},
	}
	for _, tc := range cases {
		if got := CanAcceptDrop(tc.card, tc.target, all); got != tc.want {
			t.Fatalf("CanAcceptDrop(%s, %s) = %v, want %v", tc.card, tc.target, got, tc.want)
		}
	}
}

func TestAllIDs_CanvasThenDropdownsInOrder(t *testing.T) {
	all := fixture()
	all = append(all, model.Card{ID: "dd0", Type: model.CardTypeDropdown, SortKey: "1"})
	if got, want := AllIDs(all), []string{Canvas, "dd0", "dd"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestFlatten_ChildrenFollowDropdown(t *testing.T) {
	if got, want := cardIDs(Flatten(fixture())), []string{"a", "dd", "c0", "c1", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestValidate_ReportsBrokenInvariants(t *testing.T) {
	dd := "dd"
	link := "b"
	gone := "gone"
	all := fixture()
	all = append(all,
		model.Card{ID: "nested", Type: model.CardTypeDropdown, ParentID: &dd, SortKey: "t"},
		model.Card{ID: "under-link", Type: model.CardTypeText, ParentID: &link, SortKey: "i"},
		model.Card{ID: "orphan", Type: model.CardTypeText, ParentID: &gone, SortKey: "i"},
		model.Card{ID: "dupkey", Type: model.CardTypeText, SortKey: "r"},
		model.Card{ID: "badkey", Type: model.CardTypeText, SortKey: "h0"},
	)
	codes := map[ProblemCode]bool{}
	for _, p := range Validate(all) {
		codes[p.Code] = true
	}
	for _, want := range []ProblemCode{ProblemNestedDropdown, ProblemParentNotDrop, ProblemDanglingParent, ProblemDuplicateKey, ProblemInvalidKey} {
		if !codes[want] {
			t.Fatalf("expected problem %s; got %v", want, codes)
		}
	}
	if len(Validate(fixture())) != 0 {
		t.Fatalf("expected clean fixture to validate")
	}
}
