package app

import (
	"context"
	"fmt"
	"math"
	"strings"

	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/locale"
)

const (
	minTolerancePct = 10
	maxTolerancePct = 20
)

// RoundBuilder issues ultimate rounds: one answer country, up to six steps in
// fixed order shape, area, flag, capital, population, coat.
type RoundBuilder struct {
	catalog *Catalog
	rnd     Random

	shapes []domain.Country
	flags  []domain.Country
	coats  []domain.Country
}

func NewRoundBuilder(catalog *Catalog, rnd Random) *RoundBuilder {
	if rnd == nil {
		rnd = DefaultRandom()
	}
	b := &RoundBuilder{catalog: catalog, rnd: rnd}
	for _, c := range catalog.Dataset().All() {
		if c.HasShape() {
			b.shapes = append(b.shapes, c)
		}
		if c.HasFlag() {
			b.flags = append(b.flags, c)
		}
		if c.HasCoat() {
			b.coats = append(b.coats, c)
		}
	}
	return b
}

// Build draws a fresh round. ErrUnavailable when no country has an outline.
func (b *RoundBuilder) Build(_ context.Context, rawLocale string) (domain.UltimateRound, error) {
	if len(b.shapes) == 0 {
		return domain.UltimateRound{}, fmt.Errorf("%w: no country with an outline", domain.ErrUnavailable)
	}
	loc := locale.Normalize(rawLocale)
	answer := pick(b.rnd, b.shapes)

	steps := []domain.UltimateStep{{Kind: domain.StepShape, ShapeSVG: answer.Shape}}

	if answer.HasArea() {
		steps = append(steps, domain.UltimateStep{
			Kind:         domain.StepArea,
			Area:         math.Round(answer.Area),
			TolerancePct: b.tolerance(),
		})
	}
	if answer.HasFlag() {
		if step, ok := b.choiceStep(domain.StepFlag, answer, b.flags); ok {
			steps = append(steps, step)
		}
	}
	if answer.HasUsableCapital() {
		steps = append(steps, domain.UltimateStep{
			Kind:             domain.StepCapital,
			CapitalEN:        strings.TrimSpace(answer.Capital),
			CountryLocalized: LocalizedName(answer, loc),
		})
	}
	if answer.HasPopulation() {
		steps = append(steps, domain.UltimateStep{
			Kind:         domain.StepPopulation,
			Population:   math.Round(answer.Population),
			TolerancePct: b.tolerance(),
		})
	}
	if answer.HasCoat() {
		if step, ok := b.choiceStep(domain.StepCoat, answer, b.coats); ok {
			steps = append(steps, step)
		}
	}

	return domain.UltimateRound{
		AnswerISO3:      answer.ISO3,
		AnswerEN:        answer.Name.Common,
		AnswerLocalized: LocalizedName(answer, loc),
		Steps:           steps,
	}, nil
}

func (b *RoundBuilder) tolerance() float64 {
	return float64(randInt(b.rnd, minTolerancePct, maxTolerancePct)) / 100
}

// choiceStep picks seven distractors from pool and shuffles them with the
// answer. It reports false unless exactly ChoiceSize options exist.
func (b *RoundBuilder) choiceStep(kind domain.StepKind, answer domain.Country, pool []domain.Country) (domain.UltimateStep, bool) {
	others := make([]domain.Country, 0, len(pool))
	for _, c := range pool {
		if c.ISO3 != answer.ISO3 {
			others = append(others, c)
		}
	}
	shuffle(b.rnd, others)
	if len(others) > domain.ChoiceSize-1 {
		others = others[:domain.ChoiceSize-1]
	}

	options := make([]domain.ChoiceOption, 0, domain.ChoiceSize)
	options = append(options, choiceOf(kind, answer))
	for _, c := range others {
		options = append(options, choiceOf(kind, c))
	}
	if len(options) != domain.ChoiceSize {
		return domain.UltimateStep{}, false
	}
	shuffle(b.rnd, options)

	correct := -1
	for i, o := range options {
		if o.ISO3 == answer.ISO3 {
			correct = i
			break
		}
	}
	if correct < 0 {
		return domain.UltimateStep{}, false
	}
	return domain.UltimateStep{Kind: kind, Options: options, CorrectIndex: correct}, true
}

func choiceOf(kind domain.StepKind, c domain.Country) domain.ChoiceOption {
	svg := c.FlagSVG
	if kind == domain.StepCoat {
		svg = c.CoatSVG
	}
	return domain.ChoiceOption{ISO3: c.ISO3, SVG: svg}
}
