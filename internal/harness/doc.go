// Package harness runs UI diagnostic scenarios.
//
// A scenario navigates one page, performs an ordered list of steps and
// captures evidence at declared checkpoints. Execution is best-effort: a
// step that cannot find or act on its element is recorded and the next
// step runs anyway. Only a failed initial navigation aborts a run.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: column-front-space
//	description: "Ghost preview in front of a column"
//	url: http://localhost:3000/configurator
//	navigation_timeout: 60s
//	settle_after_load: 3s
//	steps:
//	  - name: open columns tab
//	    action: click
//	    target: { text: "기둥" }
//	    settle: { duration: 1s }
//	  - name: place column
//	    action: dblclick
//	    target:
//	      selector: '[draggable="true"]'
//	      attribute: title
//	      contains: ["기둥 C", "300×300"]
//	    settle: { duration: 2s }
//	checkpoints:
//	  - name: after column
//	    after: 2
//	    tags: ["spaceInfo 기둥 정보", "columnsCount"]
//	    tail: 3
//
// Files are checked against an embedded CUE schema before they are decoded,
// so every structural problem is reported at once with its line number.
//
// # States
//
// A run moves Idle → Running → Completed. While evidence is being captured
// it is briefly Capturing. A run whose context is cancelled between steps
// ends in Cancelled and keeps whatever evidence was already written. There
// is no failed terminal state: a run with failed steps still completes.
package harness
