// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pico

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/picozot/pkg/types"
)

// fakeResolver serves content per item id and records saved annotations.
type fakeResolver struct {
	content    map[int64]string
	contentErr map[int64]error
	saveErr    error
	saved      map[int64][]string
	reads      int
}

func (f *fakeResolver) GetItemContent(_ context.Context, item types.Item) (string, error) {
	f.reads++
	if err := f.contentErr[item.ID]; err != nil {
		return "", err
	}
	return f.content[item.ID], nil
}

func (f *fakeResolver) SaveItemAnnotation(_ context.Context, item types.Item, title, content string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.saved == nil {
		f.saved = map[int64][]string{}
	}
	f.saved[item.ID] = append(f.saved[item.ID], title+"\n"+content)
	return nil
}

// fakeCache serves annotations per item id.
type fakeCache struct {
	text  map[int64]string
	err   error
	calls int
}

func (f *fakeCache) FindAnnotation(_ context.Context, item types.Item, title string) (string, bool, error) {
	f.calls++
	if f.err != nil {
		return "", false, f.err
	}
	t, ok := f.text[item.ID]
	return t, ok, nil
}

const (
	hiitAbstract    = "This randomized controlled trial examined the effects of high-intensity interval training (HIIT) compared to moderate-intensity continuous training (MICT) on glycemic control in patients with type 2 diabetes."
	aerobicAbstract = "This study compared the effects of aerobic training, resistance training, and combined training on metabolic outcomes in adults with type 2 diabetes."

	hiitReply    = `{"population":"Patients with type 2 diabetes","intervention":"High-intensity interval training (HIIT)","comparison":"Moderate-intensity continuous training (MICT)","outcome":"Glycemic control (HbA1c, fasting glucose)"}`
	aerobicReply = `{"population":"Adults with type 2 diabetes","intervention":"Aerobic training, resistance training, combined training","comparison":"Different exercise modalities","outcome":"Metabolic outcomes (glycemic control, lipid profile, body composition)"}`
)

func item(id int64, title string) types.Item {
	return types.Item{ID: id, Fields: map[string]string{types.ItemFieldTitle: title}}
}

func scenario() ([]types.Item, *fakeResolver, *mockGenerator) {
	items := []types.Item{
		item(1, "Effects of High-Intensity Interval Training on Glycemic Control in Type 2 Diabetes"),
		item(2, "Comparative Effectiveness of Aerobic and Resistance Training in Diabetes Management"),
	}
	res := &fakeResolver{content: map[int64]string{1: hiitAbstract, 2: aerobicAbstract}}
	gen := &mockGenerator{replies: map[string]string{
		"high-intensity interval training": hiitReply,
		"aerobic training":                 aerobicReply,
	}}
	return items, res, gen
}

func TestAnalyzePico_Scenario(t *testing.T) {
	items, res, gen := scenario()
	p := &Pipeline{Resolver: res, Extractor: &Extractor{Generator: gen}}

	results, summary := p.AnalyzePico(context.Background(), items)

	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].Item.ID)
	assert.Equal(t, int64(2), results[1].Item.ID)
	assert.Equal(t, "Patients with type 2 diabetes", results[0].PicoElements.Population)
	assert.Equal(t, "Adults with type 2 diabetes", results[1].PicoElements.Population)
	assert.Equal(t, BatchSummary{Analyzed: 2}, summary)
	assert.Equal(t, Completed, summary.State())
	assert.Equal(t, 2, gen.calls())

	require.Len(t, res.saved[1], 1)
	assert.Contains(t, res.saved[1][0], "PICO Analysis\nPICO Analysis\n-------------")
	assert.Contains(t, res.saved[1][0], "Population/Problem:\nPatients with type 2 diabetes")
}

func TestAnalyzePico_Empty(t *testing.T) {
	p := &Pipeline{Resolver: &fakeResolver{}, Extractor: &Extractor{Generator: &mockGenerator{}}}
	results, summary := p.AnalyzePico(context.Background(), nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, Completed, summary.State())
}

func TestAnalyzePico_PartialFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	items := []types.Item{item(1, "no content"), item(2, "bad json"), item(3, "ok"), item(4, "unreadable")}
	res := &fakeResolver{
		content:    map[int64]string{2: "BAD", 3: "GOOD"},
		contentErr: map[int64]error{4: errors.New("database is locked")},
	}
	gen := &mockGenerator{replies: map[string]string{
		"BAD":  "Sorry, I cannot help with that.",
		"GOOD": `{"population":"P","intervention":"I","outcome":"O"}`,
	}}
	p := &Pipeline{Resolver: res, Extractor: &Extractor{Generator: gen}, Logger: zap.New(core)}

	results, summary := p.AnalyzePico(context.Background(), items)

	require.Len(t, results, 1)
	assert.Equal(t, int64(3), results[0].Item.ID)
	assert.Equal(t, BatchSummary{Analyzed: 1, Skipped: 1, Failed: 2}, summary)
	assert.Equal(t, PartiallyCompleted, summary.State())
	assert.Equal(t, 2, gen.calls(), "empty content never reaches the model")
	assert.Equal(t, 1, logs.FilterMessage("No content found for item").Len())
	assert.Equal(t, 2, logs.FilterMessage("Failed to process item").Len())
}

func TestAnalyzePico_SaveFailureKeepsResult(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	items, res, gen := scenario()
	res.saveErr = errors.New("read-only library")
	p := &Pipeline{Resolver: res, Extractor: &Extractor{Generator: gen}, Logger: zap.New(core)}

	results, summary := p.AnalyzePico(context.Background(), items)

	assert.Len(t, results, 2)
	assert.Equal(t, Completed, summary.State())
	assert.Equal(t, 2, logs.FilterMessage("Failed to save PICO elements for item").Len())
}

func TestAnalyzePico_Cancelled(t *testing.T) {
	items, res, gen := scenario()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Pipeline{Resolver: res, Extractor: &Extractor{Generator: gen}}
	results, summary := p.AnalyzePico(ctx, items)

	assert.Empty(t, results)
	assert.Equal(t, 2, summary.Pending)
	assert.Equal(t, PartiallyCompleted, summary.State())
	assert.Zero(t, gen.calls())
}

func TestGetPicoElements(t *testing.T) {
	items, res, gen := scenario()
	p := &Pipeline{Resolver: res, Extractor: &Extractor{Generator: gen}}

	got, err := p.GetPicoElements(context.Background(), items[1])
	require.NoError(t, err)
	assert.Equal(t, "Adults with type 2 diabetes", got.Population)
	assert.Len(t, res.saved[2], 1)
}

func TestGetPicoElements_NoContent(t *testing.T) {
	gen := &mockGenerator{}
	p := &Pipeline{Resolver: &fakeResolver{}, Extractor: &Extractor{Generator: gen}}

	_, err := p.GetPicoElements(context.Background(), item(9, "Empty"))
	assert.ErrorIs(t, err, ErrContentUnavailable)
	assert.Contains(t, err.Error(), "Empty")
	assert.Zero(t, gen.calls())
}

func TestGetPicoElements_Cache(t *testing.T) {
	cachedText := FormatAnnotation(types.PicoRecord{Population: "Cached P", Intervention: "I", Outcome: "O"})

	tests := []struct {
		name      string
		cache     *fakeCache
		wantPop   string
		wantCalls int
	}{
		{"hit skips the model", &fakeCache{text: map[int64]string{2: cachedText}}, "Cached P", 0},
		{"miss extracts", &fakeCache{text: map[int64]string{}}, "Adults with type 2 diabetes", 1},
		{"lookup error extracts", &fakeCache{err: errors.New("io")}, "Adults with type 2 diabetes", 1},
		{"unreadable annotation extracts", &fakeCache{text: map[int64]string{2: "garbage"}}, "Adults with type 2 diabetes", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, res, gen := scenario()
			p := &Pipeline{Resolver: res, Extractor: &Extractor{Generator: gen}, Cache: tt.cache}

			got, err := p.GetPicoElements(context.Background(), items[1])
			require.NoError(t, err)
			assert.Equal(t, tt.wantPop, got.Population)
			assert.Equal(t, tt.wantCalls, gen.calls())
			assert.Equal(t, 1, tt.cache.calls)
		})
	}
}

func TestComparePicoElements(t *testing.T) {
	items, res, gen := scenario()
	items = append(items, item(3, "No content"))
	p := &Pipeline{Resolver: res, Extractor: &Extractor{Generator: gen}}

	cmp := p.ComparePicoElements(context.Background(), items)

	for _, f := range types.PicoFields {
		assert.Len(t, cmp.Differences[f], 2, "field %s", f)
		s, ok := cmp.Similarities[f]
		assert.True(t, ok)
		assert.Empty(t, s)
	}
	pop := cmp.Differences[types.FieldPopulation]
	assert.Equal(t, types.FieldValue{ItemID: 1, ItemTitle: items[0].Title(), Value: "Patients with type 2 diabetes"}, pop[0])
	assert.Equal(t, "Adults with type 2 diabetes", pop[1].Value)
}

func TestComparePicoElements_SimilarityHook(t *testing.T) {
	items, res, gen := scenario()
	var seen []types.PicoField
	p := &Pipeline{
		Resolver:  res,
		Extractor: &Extractor{Generator: gen},
		Similarity: func(f types.PicoField, values []types.FieldValue) string {
			seen = append(seen, f)
			return string(f) + ":" + values[0].Value
		},
	}

	cmp := p.ComparePicoElements(context.Background(), items)

	assert.Equal(t, types.PicoFields, seen)
	assert.Equal(t, "population:Patients with type 2 diabetes", cmp.Similarities[types.FieldPopulation])
}

func TestComparePicoElements_NoItems(t *testing.T) {
	p := &Pipeline{Resolver: &fakeResolver{}, Extractor: &Extractor{Generator: &mockGenerator{}}}
	cmp := p.ComparePicoElements(context.Background(), nil)
	for _, f := range types.PicoFields {
		assert.NotNil(t, cmp.Differences[f])
		assert.Empty(t, cmp.Differences[f])
	}
}
