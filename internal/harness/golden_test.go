package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGolden_ColumnsScenario(t *testing.T) {
	f := newFixture(t, columnsPage("Column C"))

	report, err := f.runner.Run(context.Background(), f.sess, loadColumns(t))
	require.NoError(t, err)

	AssertGolden(t, "columns_scenario", report)
}

func TestGolden_MissingColumn(t *testing.T) {
	// No draggable item carries an acceptable title: the double-click
	// fails, later steps still run, and the front-space line never shows.
	page := columnsPage("Beam B")
	f := newFixture(t, page)

	report, err := f.runner.Run(context.Background(), f.sess, loadColumns(t))
	require.NoError(t, err)

	AssertGolden(t, "missing_column", report)
}
