package ui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/list"
)

var _ list.Item = optionItem{}

// optionItem wraps one choice offered by [Console.Choose] to implement [list.Item].
type optionItem struct {
	index int // 1-based
	label string
}

func (i optionItem) FilterValue() string { return i.label }
func (i optionItem) Title() string       { return i.label }
func (i optionItem) Description() string { return "option " + strconv.Itoa(i.index) }

func optionItems(options []string) []list.Item {
	items := make([]list.Item, len(options))
	for i, o := range options {
		items[i] = optionItem{index: i + 1, label: o}
	}
	return items
}
