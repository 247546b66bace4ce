package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absmartly/preview-engine/internal/dom"
	"github.com/absmartly/preview-engine/internal/marker"
)

func TestRemoveNothingTracked(t *testing.T) {
	m := newTestManager(t, testPage, "")
	assert.False(t, m.Remove("exp-1"))
}

func TestRemoveOnlyOwnExperiment(t *testing.T) {
	m := newTestManager(t, testPage, "")

	require.True(t, m.Apply(Change{Selector: "#intro", Type: ChangeText, Value: "one"}, "exp-1"))
	require.True(t, m.Apply(Change{Selector: ".headline", Type: ChangeText, Value: "two"}, "exp-2"))

	require.True(t, m.Remove("exp-1"))

	assert.Equal(t, "Intro text", dom.Text(m.Page().FindByID("intro")))
	// exp-2's change is untouched.
	assert.Equal(t, "two", dom.Text(m.Page().Find(".headline")[0]))
	assert.Equal(t, 1, m.Count())
}

func TestRemoveOutOfBandByMarker(t *testing.T) {
	src := `<div id="t" data-absmartly-experiment="exp-1"
		data-absmartly-original='{"textContent":"original text"}'>mutated</div>`
	m := newTestManager(t, src, "")

	require.True(t, m.Remove("exp-1"))

	el := m.Page().FindByID("t")
	assert.Equal(t, "original text", dom.Text(el))
	assert.False(t, dom.HasAttr(el, marker.AttrExperiment))
	assert.False(t, dom.HasAttr(el, marker.AttrOriginal))
}

func TestRemoveOutOfBandPrefersInnerHTML(t *testing.T) {
	src := `<div id="t" data-absmartly-experiment="exp-1"
		data-absmartly-original='{"innerHTML":"<b>markup</b>","textContent":"ignored"}'>mutated</div>`
	m := newTestManager(t, src, "")

	require.True(t, m.Remove("exp-1"))
	assert.Equal(t, "<b>markup</b>", dom.InnerHTML(m.Page().FindByID("t")))
}

func TestRemoveOutOfBandStylesAndAttributes(t *testing.T) {
	src := `<div id="t" data-absmartly-experiment="exp-1" style="color: blue"
		data-absmartly-original='{"styles":{"color":"red !important"},"attributes":{"title":"orig"}}'>x</div>`
	m := newTestManager(t, src, "")

	require.True(t, m.Remove("exp-1"))

	el := m.Page().FindByID("t")
	assert.Equal(t, "red !important", dom.StyleMap(el)["color"])
	assert.Equal(t, "orig", dom.GetAttr(el, "title"))
}

func TestRemoveOutOfBandSentinel(t *testing.T) {
	src := `<div id="t" data-absmartly-experiment="__preview__"
		data-absmartly-original='{"textContent":"before preview"}'>mutated</div>`
	m := newTestManager(t, src, "")

	// Sentinel-marked elements come out with any experiment's removal.
	require.True(t, m.Remove("exp-whatever"))
	assert.Equal(t, "before preview", dom.Text(m.Page().FindByID("t")))
}

func TestRemoveOutOfBandMalformedOriginal(t *testing.T) {
	src := `<div id="t" data-absmartly-experiment="exp-1"
		data-absmartly-original='{not json'>kept</div>`
	m := newTestManager(t, src, "")

	assert.NotPanics(t, func() {
		require.True(t, m.Remove("exp-1"))
	})

	el := m.Page().FindByID("t")
	// Content stays as-is, but markers still come off.
	assert.Equal(t, "kept", dom.Text(el))
	assert.False(t, dom.HasAttr(el, marker.AttrExperiment))
	assert.False(t, dom.HasAttr(el, marker.AttrOriginal))
}

func TestRemoveOutOfBandQuotedExperimentName(t *testing.T) {
	src := `<div id="t" data-absmartly-experiment='say-"hi"'
		data-absmartly-original='{"textContent":"orig"}'>mutated</div>`
	m := newTestManager(t, src, "")

	// Marker values are compared directly, not compiled into a selector, so
	// names with quotes or backslashes still restore.
	require.True(t, m.Remove(`say-"hi"`))

	el := m.Page().FindByID("t")
	assert.Equal(t, "orig", dom.Text(el))
	assert.False(t, dom.HasAttr(el, marker.AttrExperiment))
	assert.False(t, dom.HasAttr(el, marker.AttrOriginal))
}

func TestRemoveOutOfBandMarkerOnly(t *testing.T) {
	src := `<div id="t" data-absmartly-experiment="exp-1" data-absmartly-modified="true">x</div>`
	m := newTestManager(t, src, "")

	require.True(t, m.Remove("exp-1"))

	el := m.Page().FindByID("t")
	assert.False(t, dom.HasAttr(el, marker.AttrExperiment))
	assert.False(t, dom.HasAttr(el, marker.AttrModified))
}

func TestClear(t *testing.T) {
	m := newTestManager(t, testPage, "")

	require.True(t, m.Apply(Change{Selector: "#intro", Type: ChangeText, Value: "one"}, "exp-1"))
	require.True(t, m.Apply(Change{Selector: ".headline", Type: ChangeText, Value: "two"}, "exp-2"))
	require.True(t, m.Apply(Change{Selector: ".promo", Type: ChangeStyleRules, Value: "a { color: red }"}, "exp-3"))

	m.Clear()

	assert.Equal(t, 0, m.Count())
	assert.Equal(t, "Intro text", dom.Text(m.Page().FindByID("intro")))
	assert.Equal(t, "Original headline", dom.Text(m.Page().Find(".headline")[0]))
	assert.Nil(t, m.Page().FindByID(marker.StyleElementID("exp-3")))

	rendered, err := m.Page().Render()
	require.NoError(t, err)
	assert.NotContains(t, rendered, "absmartly")
}
