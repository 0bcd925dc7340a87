package query

import (
	"encoding/json"
	"fmt"

	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/filter"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/models"
)

// Params is a search form's input.
type Params interface {
	// FormType names the form the parameters came from.
	FormType() models.FormType

	// Filters translates the parameters into filters, in form order.
	Filters() ([]filter.Spec, error)

	// RemoveDuplicates reports whether reprints should be collapsed.
	RemoveDuplicates() bool
}

// FreeParams is the single-box search: card name contains Text.
type FreeParams struct {
	Text string `json:"text"`
}

func (FreeParams) FormType() models.FormType { return models.FormFree }

func (p FreeParams) Filters() ([]filter.Spec, error) {
	f, err := filter.TextContains(filter.CardName, p.Text)
	if err != nil {
		return nil, err
	}
	return []filter.Spec{f}, nil
}

func (FreeParams) RemoveDuplicates() bool { return false }

// AdvancedParams is the advanced search form. Empty fields are ignored.
type AdvancedParams struct {
	CardName                string   `json:"cardName,omitempty"`
	CardSupertype           []string `json:"cardSupertype,omitempty"`
	CardSubtypes            []string `json:"cardSubtypes,omitempty"`
	CardTypes               []string `json:"cardTypes,omitempty"`
	CardHP                  *int     `json:"cardHp,omitempty"`
	CardHPOperator          string   `json:"cardHpOperator,omitempty"`
	CardRetreatCost         *int     `json:"cardRetreatCost,omitempty"`
	CardRetreatCostOperator string   `json:"cardRetreatCostOperator,omitempty"`
	CardSets                []string `json:"cardSets,omitempty"`
	CardRegulationMarks     []string `json:"cardRegulationMarks,omitempty"`
	CardRules               string   `json:"cardRules,omitempty"`
	CardAbilityName         string   `json:"cardAbilityName,omitempty"`
	CardAttackName          string   `json:"cardAttackName,omitempty"`
	CardAttackCost          []string `json:"cardAttackCost,omitempty"`
	CardEvolvesTo           string   `json:"cardEvolvesTo,omitempty"`
	HasAbility              bool     `json:"hasAbility,omitempty"`
	Dedupe                  bool     `json:"removeDuplicates,omitempty"`
}

func (AdvancedParams) FormType() models.FormType { return models.FormAdvanced }

func (p AdvancedParams) RemoveDuplicates() bool { return p.Dedupe }

// Filters returns one filter per form field, in the form's field order.
func (p AdvancedParams) Filters() ([]filter.Spec, error) {
	hpOp, err := filter.ParseOperator(p.CardHPOperator)
	if err != nil {
		return nil, err
	}
	retreatOp, err := filter.ParseOperator(p.CardRetreatCostOperator)
	if err != nil {
		return nil, err
	}

	var b builder
	b.add(filter.TextContains(filter.CardName, p.CardName))
	b.add(filter.AnyOf(filter.CardSupertype, p.CardSupertype))
	b.add(filter.AnyOf(filter.CardSubtypes, p.CardSubtypes))
	b.add(filter.AnyOf(filter.CardTypes, p.CardTypes))
	b.add(filter.NumericCompare(filter.CardHP, hpOp, p.CardHP))
	b.add(filter.NumericCompare(filter.CardRetreatCost, retreatOp, p.CardRetreatCost))
	b.add(filter.AnyOf(filter.SetID, p.CardSets))
	b.add(filter.AnyOf(filter.CardRegulationMark, p.CardRegulationMarks))
	b.add(filter.TextContains(filter.CardRules, p.CardRules))
	b.add(filter.TextContains(filter.AbilityName, p.CardAbilityName))
	b.add(filter.TextContains(filter.AttackName, p.CardAttackName))
	b.add(filter.AnyOf(filter.AttackCost, p.CardAttackCost))
	b.add(filter.ArrayContains(filter.CardEvolvesTo, p.CardEvolvesTo))
	b.add(filter.Exists(filter.HasAbility, p.HasAbility))
	return b.specs, b.err
}

// builder collects filters, keeping the first construction error.
type builder struct {
	specs []filter.Spec
	err   error
}

func (b *builder) add(f filter.Spec, err error) {
	if b.err != nil {
		return
	}
	if err != nil {
		b.err = err
		return
	}
	b.specs = append(b.specs, f)
}

// Encode serializes params for storage as a saved query.
func Encode(p Params) (models.FormType, json.RawMessage, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode search params: %w", err)
	}
	return p.FormType(), data, nil
}

// FromSaved decodes a saved query back into replayable params.
func FromSaved(saved *models.SavedQuery) (Params, error) {
	switch saved.FormType {
	case models.FormFree:
		var p FreeParams
		if err := json.Unmarshal(saved.Params, &p); err != nil {
			return nil, fmt.Errorf("failed to decode saved query %q: %w", saved.Name, err)
		}
		return p, nil
	case models.FormAdvanced:
		var p AdvancedParams
		if err := json.Unmarshal(saved.Params, &p); err != nil {
			return nil, fmt.Errorf("failed to decode saved query %q: %w", saved.Name, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("saved query %q has unknown form type %q", saved.Name, saved.FormType)
	}
}
