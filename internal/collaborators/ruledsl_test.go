package collaborators

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
)

func TestRuleIconGroupLocatorResolvesFromLabels(t *testing.T) {
	labels := []catalogmodel.Label{
		{Text: "Fore Weapon", Corners: [4]catalogmodel.Corner{{X: 100, Y: 50}, {X: 200, Y: 50}, {X: 200, Y: 70}, {X: 100, Y: 70}}},
	}
	loc := &RuleIconGroupLocator{
		Rules: RuleSet{Groups: []RuleGroup{
			{
				Label: "Fore Weapon",
				Left:  LabelRef{Text: "Fore Weapon", Side: "left"},
				Top:   LabelRef{Text: "Fore Weapon", Side: "mid_y"},
				Right: BinOp{Op: "+", Lhs: LabelRef{Text: "Fore Weapon", Side: "right"}, Rhs: Literal{Value: 200}},
				Bottom: BinOp{Op: "+", Lhs: LabelRef{Text: "Fore Weapon", Side: "mid_y"}, Rhs: Literal{Value: 40}},
			},
		}},
	}

	groups, err := loc.LocateIconGroups(context.Background(), labels, catalogmodel.Classification{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 100, groups[0].Bbox.X)
}

func TestFirstOfWarnsAndContinuesOnMiss(t *testing.T) {
	expr := FirstOf{Candidates: []Expr{LabelRef{Text: "Missing", Side: "left"}}, GroupLabel: "Unresolvable"}
	_, ok := expr.eval(&evalContext{})
	assert.False(t, ok)
}

func TestGroupRefSeesEarlierResolvedGroup(t *testing.T) {
	labels := []catalogmodel.Label{
		{Text: "Fore Weapon", Corners: [4]catalogmodel.Corner{{X: 100, Y: 50}, {X: 200, Y: 50}, {X: 200, Y: 70}, {X: 100, Y: 70}}},
	}
	loc := &RuleIconGroupLocator{
		Rules: RuleSet{Groups: []RuleGroup{
			{
				Label:  "Fore Weapon",
				Left:   LabelRef{Text: "Fore Weapon", Side: "left"},
				Top:    LabelRef{Text: "Fore Weapon", Side: "mid_y"},
				Right:  LabelRef{Text: "Fore Weapon", Side: "right"},
				Bottom: BinOp{Op: "+", Lhs: LabelRef{Text: "Fore Weapon", Side: "mid_y"}, Rhs: Literal{Value: 20}},
			},
			{
				Label:  "Aft Weapon",
				Left:   GroupRef{GroupLabel: "Fore Weapon", Side: "left"},
				Top:    GroupRef{GroupLabel: "Fore Weapon", Side: "bottom"},
				Right:  GroupRef{GroupLabel: "Fore Weapon", Side: "right"},
				Bottom: BinOp{Op: "+", Lhs: GroupRef{GroupLabel: "Fore Weapon", Side: "bottom"}, Rhs: Literal{Value: 20}},
			},
		}},
	}

	groups, err := loc.LocateIconGroups(context.Background(), labels, catalogmodel.Classification{})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, groups[0].Bbox.Y+groups[0].Bbox.H, groups[1].Bbox.Y)
}
