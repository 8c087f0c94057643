package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToggle(t *testing.T) {
	tg := NewToggle(true)
	var seen []bool
	unsubscribe := tg.Subscribe(func(v bool) { seen = append(seen, v) })

	tg.Set(true) // no transition
	tg.Set(false)
	tg.Set(false)
	tg.Set(true)

	assert.Equal(t, []bool{false, true}, seen)
	assert.True(t, tg.Visible())

	unsubscribe()
	tg.Set(false)
	assert.Len(t, seen, 2, "unsubscribed callback must not fire")
}

func TestAlways(t *testing.T) {
	assert.True(t, Always.Visible())
	Always.Subscribe(func(bool) { t.Fatal("Always never transitions") })()
}
