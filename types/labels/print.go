/*
 *	Copyright 2024 The blocksparse Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package labels

import (
	"strconv"
	"strings"
)

// String prints a summary of these Labels, with at most 4 entries.
// Use Print to control the number of entries included.
func (l *Labels) String() string {
	kind := "Labels"
	if l.IsView() {
		kind = "LabelsView"
	}
	return kind + "(\n   " + l.Print(4, 3) + "\n)"
}

// Print renders these Labels as a column-aligned table.
//
// maxEntries limits how many entries are included -- the first and last ones
// are kept, with an ellipsis in between. Use -1 to include everything.
// Every line after the first is prefixed with indent spaces.
func (l *Labels) Print(maxEntries int, indent int) string {
	count := l.Count()
	var first, second []int
	if maxEntries < 0 || count <= maxEntries {
		first = rowRange(0, count)
	} else {
		if maxEntries < 2 {
			maxEntries = 2
		}
		after := maxEntries / 2
		before := maxEntries - after
		first = rowRange(0, before)
		second = rowRange(count-after, count)
	}

	// Column widths: at least one space on each side of the name, widened by
	// the largest value rendered in the column.
	widths := make([]int, l.Size())
	for i, name := range l.names {
		widths[i] = len(name) + 2
	}
	measure := func(rows []int) [][]string {
		rendered := make([][]string, 0, len(rows))
		for _, row := range rows {
			values := l.row(row)
			strs := make([]string, len(values))
			for i, v := range values {
				strs[i] = strconv.FormatInt(int64(v), 10)
				widths[i] = max(widths[i], len(strs[i])+2)
			}
			rendered = append(rendered, strs)
		}
		return rendered
	}
	firstRendered := measure(first)
	secondRendered := measure(second)

	var output strings.Builder
	indentStr := strings.Repeat(" ", indent)
	writeRow := func(cells []string) {
		for i, cell := range cells {
			printCentered(&output, cell, widths[i], i == len(cells)-1)
		}
		output.WriteByte('\n')
	}

	writeRow(l.names)
	for _, cells := range firstRendered {
		output.WriteString(indentStr)
		writeRow(cells)
	}
	if len(secondRendered) > 0 {
		half := 0
		for _, w := range widths {
			half += w
		}
		half /= 2
		if half > 3 {
			half -= 3 // the width of "..."
		}
		output.WriteString(indentStr)
		output.WriteString(strings.Repeat(" ", half+1))
		output.WriteString("...\n")
		for _, cells := range secondRendered {
			output.WriteString(indentStr)
			writeRow(cells)
		}
	}
	return strings.TrimSuffix(output.String(), "\n")
}

func printCentered(output *strings.Builder, s string, width int, last bool) {
	delta := width - len(s)
	before := delta / 2
	output.WriteString(strings.Repeat(" ", before))
	output.WriteString(s)
	if !last {
		output.WriteString(strings.Repeat(" ", delta-before))
	}
}

func rowRange(start, end int) []int {
	rows := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, i)
	}
	return rows
}
