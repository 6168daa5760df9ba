package step

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uiprobe/internal/browser/browsertest"
	"github.com/roach88/uiprobe/internal/testutil"
)

const draggable = `[draggable="true"]`

func TestExecute_ClickByText(t *testing.T) {
	page := browsertest.NewPage()
	other := browsertest.Text("공간")
	tab := browsertest.Text("  기둥 ")
	page.Add(DefaultTextSelector, other, tab)
	sleeper := testutil.NewRecordingSleeper()

	st := Step{
		Name:   "open columns tab",
		Action: ActionClick,
		Target: &Locator{Text: "기둥"},
		Settle: Settle{Duration: time.Second},
	}
	out := st.Execute(context.Background(), page, sleeper)

	assert.Equal(t, StatusOK, out.Status)
	assert.Nil(t, out.Failure)
	assert.True(t, out.Settled)
	assert.Equal(t, 1, out.Candidates)
	assert.Equal(t, 1, tab.Clicks())
	assert.Equal(t, 0, other.Clicks())
	assert.Equal(t, []time.Duration{time.Second}, sleeper.Sleeps())
}

func TestExecute_DoubleClickByAttributeAlternatives(t *testing.T) {
	alternatives := []string{"Column C", "Column-C", "300×300"}

	for i, title := range []string{
		"Column C (tall)",
		"Column-C",
		"Pillar 300×300×2400mm",
	} {
		t.Run(fmt.Sprintf("alternative %d", i+1), func(t *testing.T) {
			page := browsertest.NewPage()
			a := browsertest.Titled("Column A 600×300")
			target := browsertest.Titled(title)
			page.Add(draggable, a, target)

			st := Step{
				Name:   "place column C",
				Action: ActionDoubleClick,
				Target: &Locator{Selector: draggable, Attribute: "title", Contains: alternatives},
			}
			out := st.Execute(context.Background(), page, testutil.NewRecordingSleeper())

			require.Equal(t, StatusOK, out.Status)
			assert.Equal(t, 1, target.DoubleClicks())
			assert.Equal(t, 0, a.DoubleClicks())
			assert.Equal(t, 0, target.Clicks())
		})
	}
}

func TestExecute_MissingAttributeReadsAsEmpty(t *testing.T) {
	page := browsertest.NewPage()
	untitled := &browsertest.Element{}
	titled := browsertest.Titled("Column C")
	page.Add(draggable, untitled, titled)

	st := Step{
		Name:   "place column C",
		Action: ActionDoubleClick,
		Target: &Locator{Selector: draggable, Attribute: "title", Contains: []string{"Column C"}},
	}
	out := st.Execute(context.Background(), page, testutil.NewRecordingSleeper())

	assert.Equal(t, StatusOK, out.Status)
	assert.Equal(t, 0, untitled.DoubleClicks())
	assert.Equal(t, 1, titled.DoubleClicks())
}

func TestExecute_AttributePresenceOnly(t *testing.T) {
	page := browsertest.NewPage()
	plain := &browsertest.Element{}
	flagged := &browsertest.Element{Attrs: map[string]string{"data-ghost": ""}}
	page.Add("div", plain, flagged)

	st := Step{Name: "ghost", Action: ActionClick, Target: &Locator{Selector: "div", Attribute: "data-ghost"}}
	out := st.Execute(context.Background(), page, testutil.NewRecordingSleeper())

	assert.Equal(t, StatusOK, out.Status)
	assert.Equal(t, 1, flagged.Clicks())
	assert.Equal(t, 0, plain.Clicks())
}

func TestExecute_PickByIndex(t *testing.T) {
	page := browsertest.NewPage()
	first := browsertest.Titled("single 400")
	second := browsertest.Titled("single 450")
	page.Add(draggable, first, second)

	st := Step{Name: "second module", Action: ActionClick, Target: &Locator{Selector: draggable, Index: 1}}
	out := st.Execute(context.Background(), page, testutil.NewRecordingSleeper())

	assert.Equal(t, StatusOK, out.Status)
	assert.Equal(t, 2, out.Candidates)
	assert.Equal(t, 0, first.Clicks())
	assert.Equal(t, 1, second.Clicks())
}

func TestExecute_ElementNotFound(t *testing.T) {
	page := browsertest.NewPage()
	page.Add(draggable, browsertest.Titled("Column A"))
	sleeper := testutil.NewRecordingSleeper()

	st := Step{
		Name:   "place column C",
		Action: ActionDoubleClick,
		Target: &Locator{Selector: draggable, Attribute: "title", Contains: []string{"Column C"}},
		Settle: Settle{Duration: 2 * time.Second},
	}
	out := st.Execute(context.Background(), page, sleeper)

	require.True(t, out.Failed())
	require.NotNil(t, out.Failure)
	assert.Equal(t, ErrCodeElementNotFound, out.Failure.Code)
	assert.Equal(t, "place column C", out.Failure.Step)
	assert.Contains(t, out.Failure.Reason, "no element matched")
	assert.True(t, IsElementNotFound(out.Failure))
	assert.Empty(t, sleeper.Sleeps(), "a failed step performs no action and does not settle")
}

func TestExecute_IndexOutOfRange(t *testing.T) {
	page := browsertest.NewPage()
	page.Add(draggable, browsertest.Titled("a"))

	st := Step{Name: "third", Action: ActionClick, Target: &Locator{Selector: draggable, Index: 2}}
	out := st.Execute(context.Background(), page, testutil.NewRecordingSleeper())

	require.True(t, out.Failed())
	assert.Equal(t, ErrCodeElementNotFound, out.Failure.Code)
	assert.Equal(t, 1, out.Candidates)
	assert.Contains(t, out.Failure.Reason, "want index 2")
}

func TestExecute_LocateError(t *testing.T) {
	page := browsertest.NewPage()
	page.LocateErr = errors.New("detached frame")

	st := Step{Name: "tab", Action: ActionClick, Target: &Locator{Text: "모듈"}}
	out := st.Execute(context.Background(), page, testutil.NewRecordingSleeper())

	require.True(t, out.Failed())
	assert.Equal(t, ErrCodeElementNotFound, out.Failure.Code)
	assert.ErrorContains(t, out.Failure, "detached frame")
}

func TestExecute_ActionFailed(t *testing.T) {
	page := browsertest.NewPage()
	covered := browsertest.Text("싱글")
	covered.ClickErr = errors.New("element is covered by overlay")
	page.Add(DefaultTextSelector, covered)

	st := Step{Name: "single tab", Action: ActionClick, Target: &Locator{Text: "싱글"}, Settle: Settle{Duration: time.Second}}
	sleeper := testutil.NewRecordingSleeper()
	out := st.Execute(context.Background(), page, sleeper)

	require.True(t, out.Failed())
	assert.Equal(t, ErrCodeActionFailed, out.Failure.Code)
	assert.True(t, IsActionFailed(out.Failure))
	assert.False(t, IsElementNotFound(out.Failure))
	assert.ErrorIs(t, out.Failure, covered.ClickErr)
	assert.Empty(t, sleeper.Sleeps())
}

func TestExecute_TextErrorSkipsCandidate(t *testing.T) {
	page := browsertest.NewPage()
	broken := browsertest.Text("모듈")
	broken.TextErr = errors.New("node gone")
	ok := browsertest.Text("모듈")
	page.Add(DefaultTextSelector, broken, ok)

	st := Step{Name: "modules", Action: ActionClick, Target: &Locator{Text: "모듈"}}
	out := st.Execute(context.Background(), page, testutil.NewRecordingSleeper())

	assert.Equal(t, StatusOK, out.Status)
	assert.Equal(t, 1, ok.Clicks())
}

func TestExecute_TextSkipsHiddenDuplicate(t *testing.T) {
	page := browsertest.NewPage()
	collapsed := browsertest.Text("기둥")
	collapsed.Hidden = true
	tab := browsertest.Text("기둥")
	page.Add(DefaultTextSelector, collapsed, tab)

	st := Step{Name: "open columns tab", Action: ActionClick, Target: &Locator{Text: "기둥"}}
	out := st.Execute(context.Background(), page, testutil.NewRecordingSleeper())

	require.Equal(t, StatusOK, out.Status)
	assert.Equal(t, 1, out.Candidates)
	assert.Equal(t, 1, tab.Clicks())
	assert.Equal(t, 0, collapsed.Clicks())
}

func TestExecute_TextPrefersInnermostMatch(t *testing.T) {
	page := browsertest.NewPage()
	button := browsertest.Text("columns")
	wrapper := browsertest.Wrap(browsertest.Text("columns"), button)
	outer := browsertest.Wrap(browsertest.Text(" columns "), wrapper)
	// Document order: ancestors first.
	page.Add(DefaultTextSelector, outer, wrapper, button)

	st := Step{Name: "open columns tab", Action: ActionClick, Target: &Locator{Text: "columns"}}
	out := st.Execute(context.Background(), page, testutil.NewRecordingSleeper())

	require.Equal(t, StatusOK, out.Status)
	assert.Equal(t, 1, out.Candidates)
	assert.Equal(t, 1, button.Clicks())
	assert.Equal(t, 0, wrapper.Clicks())
	assert.Equal(t, 0, outer.Clicks())
}

func TestExecute_HiddenOnlyIsNotFound(t *testing.T) {
	page := browsertest.NewPage()
	hidden := browsertest.Text("모듈")
	hidden.Hidden = true
	page.Add(DefaultTextSelector, hidden)

	st := Step{Name: "modules", Action: ActionClick, Target: &Locator{Text: "모듈"}}
	out := st.Execute(context.Background(), page, testutil.NewRecordingSleeper())

	require.True(t, out.Failed())
	assert.Equal(t, ErrCodeElementNotFound, out.Failure.Code)
}

func TestExecute_Wait(t *testing.T) {
	sleeper := testutil.NewRecordingSleeper()
	st := Step{Name: "let the scene render", Action: ActionWait, Settle: Settle{Duration: 3 * time.Second}}

	out := st.Execute(context.Background(), browsertest.NewPage(), sleeper)

	assert.Equal(t, StatusOK, out.Status)
	assert.Equal(t, []time.Duration{3 * time.Second}, sleeper.Sleeps())
}

func TestExecute_UnknownAction(t *testing.T) {
	st := Step{Name: "hover", Action: "hover"}
	out := st.Execute(context.Background(), browsertest.NewPage(), testutil.NewRecordingSleeper())

	require.True(t, out.Failed())
	assert.Equal(t, ErrCodeActionFailed, out.Failure.Code)
}

func TestSettle_StableCount(t *testing.T) {
	page := browsertest.NewPage()
	page.Add(".slot", &browsertest.Element{})
	sleeper := testutil.NewRecordingSleeper()

	// A slot appears during the first poll interval, then the count holds.
	sleeper.OnSleep = func(call int, d time.Duration) {
		if call == 1 {
			page.Add(".slot", &browsertest.Element{})
		}
	}

	settled, err := Settle{Stable: ".slot", Poll: 100 * time.Millisecond}.Wait(context.Background(), page, sleeper)
	require.NoError(t, err)
	assert.True(t, settled)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, sleeper.Sleeps())
}

func TestSettle_StableTimeoutFallsBack(t *testing.T) {
	page := browsertest.NewPage()
	sleeper := testutil.NewRecordingSleeper()

	// The count keeps growing, so it never stabilises.
	sleeper.OnSleep = func(call int, d time.Duration) {
		page.Add(".slot", &browsertest.Element{})
	}

	s := Settle{Stable: ".slot", Poll: 100 * time.Millisecond, Timeout: 300 * time.Millisecond, Duration: 2 * time.Second}
	settled, err := s.Wait(context.Background(), page, sleeper)
	require.NoError(t, err)
	assert.False(t, settled)

	sleeps := sleeper.Sleeps()
	require.NotEmpty(t, sleeps)
	assert.Equal(t, 2*time.Second, sleeps[len(sleeps)-1], "fixed duration is the fallback")
}

func TestSettle_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	settled, err := Settle{Duration: time.Second}.Wait(ctx, browsertest.NewPage(), testutil.NewRecordingSleeper())
	assert.False(t, settled && err == nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRealSleeper(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, RealSleeper{}.Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, RealSleeper{}.Sleep(context.Background(), time.Millisecond))
}

func TestStep_Validate(t *testing.T) {
	tests := []struct {
		name    string
		step    Step
		wantErr string
	}{
		{"ok click", Step{Name: "a", Action: ActionClick, Target: &Locator{Text: "x"}}, ""},
		{"ok wait", Step{Name: "a", Action: ActionWait, Settle: Settle{Duration: time.Second}}, ""},
		{"missing name", Step{Action: ActionClick}, "name is required"},
		{"missing action", Step{Name: "a"}, "action is required"},
		{"unknown action", Step{Name: "a", Action: "drag"}, "unknown action"},
		{"missing target", Step{Name: "a", Action: ActionDoubleClick}, "target is required"},
		{"empty locator", Step{Name: "a", Action: ActionClick, Target: &Locator{}}, "selector or text is required"},
		{"contains without attribute", Step{Name: "a", Action: ActionClick, Target: &Locator{Selector: "x", Contains: []string{"c"}}}, "contains requires attribute"},
		{"negative index", Step{Name: "a", Action: ActionClick, Target: &Locator{Selector: "x", Index: -1}}, "index must be non-negative"},
		{"wait without settle", Step{Name: "a", Action: ActionWait}, "wait requires"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLocator_String(t *testing.T) {
	l := Locator{Selector: draggable, Attribute: "title", Contains: []string{"Column C", "300×300"}, Index: 1}
	assert.Equal(t, `selector="[draggable=\"true\"]" title~["Column C" "300×300"] index=1`, l.String())
	assert.Equal(t, `text="기둥"`, (&Locator{Text: "기둥"}).String())
}
