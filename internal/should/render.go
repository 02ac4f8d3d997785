package should

import (
	"fmt"
	"sort"
	"strings"
	"ui-regression/internal/diff/text"
)

var lineDiff text.Differ = text.NewLineDiff(false)

// describe renders the failure description of c for target name. expect selects the positive
// or the negative wording; o carries the last observed value and may be nil.
func describe(c Condition, name string, expect bool, o *observation) string {
	var positive, negative string
	actual := ""
	if o != nil {
		actual = o.actual
	}

	switch c := c.(type) {
	case ExactText:
		positive = fmt.Sprintf("%s should have text %q", name, c.Text)
		negative = fmt.Sprintf("%s should not have text %q", name, c.Text)
		if o != nil {
			positive = fmt.Sprintf("text of %s does not equal the expected one\nexpected: %s\ncurrent:  %s", name, c.Text, actual)
			negative = fmt.Sprintf("text of %s should differ from the expected one\nexpected: %s\ncurrent:  %s", name, c.Text, actual)
			if strings.Contains(c.Text, "\n") || strings.Contains(actual, "\n") {
				positive += "\n" + lineDiff.Calculate(c.Text, actual).Diff
			}
		}
	case ExactTextIgnoringCase:
		positive = fmt.Sprintf("%s should have text %q (ignoring case)", name, c.Text)
		negative = fmt.Sprintf("%s should not have text %q (ignoring case)", name, c.Text)
		if o != nil {
			positive = fmt.Sprintf("text of %s does not equal the expected one (ignoring case)\nexpected: %s\ncurrent:  %s", name, c.Text, actual)
			negative = fmt.Sprintf("text of %s should differ from the expected one (ignoring case)\nexpected: %s\ncurrent:  %s", name, c.Text, actual)
		}
	case ContainsText:
		positive = fmt.Sprintf("%s should contain text %q", name, c.Text)
		negative = fmt.Sprintf("%s should not contain text %q", name, c.Text)
		if o != nil {
			positive = fmt.Sprintf("expected text not found in %s\nexpected: %s\ncurrent:  %s", name, c.Text, actual)
			negative = fmt.Sprintf("%s should not contain the text\nexpected: %s\ncurrent:  %s", name, c.Text, actual)
		}
	case TextIgnoringCase:
		positive = fmt.Sprintf("%s should contain text %q (ignoring case)", name, c.Text)
		negative = fmt.Sprintf("%s should not contain text %q (ignoring case)", name, c.Text)
		if o != nil {
			positive = fmt.Sprintf("expected text not found in %s (ignoring case)\nexpected: %s\ncurrent:  %s", name, c.Text, actual)
			negative = fmt.Sprintf("%s should not contain the text (ignoring case)\nexpected: %s\ncurrent:  %s", name, c.Text, actual)
		}
	case MatchRegex:
		positive = fmt.Sprintf("text of %s should match regular expression %q", name, c.Pattern)
		negative = fmt.Sprintf("text of %s should not match regular expression %q", name, c.Pattern)
		if o != nil {
			positive = fmt.Sprintf("text of %s does not match the regular expression\ncurrent: %s\npattern: %s", name, actual, c.Pattern)
			negative = fmt.Sprintf("text of %s should not match the regular expression\ncurrent: %s\npattern: %s", name, actual, c.Pattern)
		}
	case CSSClass:
		positive = fmt.Sprintf("%s should have css class %q", name, c.Class)
		negative = fmt.Sprintf("%s should not have css class %q", name, c.Class)
		if o != nil {
			positive = fmt.Sprintf("%s has no css class %s\ncurrent: %s", name, c.Class, actual)
			negative = fmt.Sprintf("%s should not have css class %s\ncurrent: %s", name, c.Class, actual)
		}
	case Attribute:
		positive = fmt.Sprintf("%s should have attributes: %s", name, formatValues(c.Values))
		negative = fmt.Sprintf("%s should not have attributes: %s", name, formatValues(c.Values))
		if o != nil {
			positive = fmt.Sprintf("wrong attribute values of %s\n%s", name, strings.Join(o.details, "\n"))
			negative = fmt.Sprintf("attribute values of %s should differ\n%s", name, strings.Join(o.details, "\n"))
		}
	case CSSProperty:
		positive = fmt.Sprintf("css properties of %s do not equal the expected ones: %s", name, formatValues(c.Values))
		negative = fmt.Sprintf("css properties of %s should not equal the expected ones: %s", name, formatValues(c.Values))
		if o != nil {
			positive = fmt.Sprintf("css properties of %s do not equal the expected ones:\n\nproperty: expected != current\n%s", name, strings.Join(o.details, "\n"))
			negative = fmt.Sprintf("css properties of %s should not equal the expected ones:\n\nproperty: expected == current\n%s", name, strings.Join(o.details, "\n"))
		}
	case CountElements:
		positive = fmt.Sprintf("number of elements (%s) should be %d", name, c.Count)
		negative = fmt.Sprintf("number of elements (%s) should not be %d", name, c.Count)
		if o != nil {
			positive = fmt.Sprintf("wrong number of elements (%s)\nexpected: %d\ncurrent:  %s", name, c.Count, actual)
		}
	case Size:
		expected := formatSize(c)
		positive = fmt.Sprintf("size of element (%s) should be %s", name, expected)
		negative = fmt.Sprintf("size of element (%s) should not be %s", name, expected)
		if o != nil {
			positive = fmt.Sprintf("wrong size of element (%s)\nexpected: %s\ncurrent:  %s", name, expected, actual)
		}
	case Coordinates:
		positive = fmt.Sprintf("coordinates of element (%s) should be %dx%d", name, c.X, c.Y)
		negative = fmt.Sprintf("coordinates of element (%s) should not be %dx%d", name, c.X, c.Y)
		if o != nil {
			positive = fmt.Sprintf("wrong coordinates of element (%s)\nexpected: %dx%d\ncurrent:  %s", name, c.X, c.Y, actual)
		}
	case Displayed:
		positive = fmt.Sprintf("%s is not displayed", name)
		negative = fmt.Sprintf("%s should not be displayed", name)
	case Hidden:
		positive = fmt.Sprintf("element %s should not be displayed", name)
		negative = fmt.Sprintf("element %s should be displayed", name)
	case Present:
		positive = fmt.Sprintf("%s is not in the DOM tree", name)
		negative = fmt.Sprintf("%s should not be in the DOM tree", name)
	case Enabled:
		positive = fmt.Sprintf("%s should be enabled", name)
		negative = fmt.Sprintf("%s should not be enabled", name)
	case Disabled:
		positive = fmt.Sprintf("%s should be disabled", name)
		negative = fmt.Sprintf("%s should not be disabled", name)
	case Readonly:
		positive = fmt.Sprintf("%s should be readonly", name)
		negative = fmt.Sprintf("%s should not be readonly", name)
	case Empty:
		positive = fmt.Sprintf("%s should be empty", name)
		negative = fmt.Sprintf("%s should not be empty", name)
	case Active:
		positive = fmt.Sprintf("%s is not active", name)
		negative = fmt.Sprintf("%s should not be active", name)
	case URLExact:
		positive = fmt.Sprintf("current url should be %s", c.URL)
		negative = fmt.Sprintf("current url should not be %s", c.URL)
		if o != nil {
			positive = fmt.Sprintf("wrong url of the active tab\nexpected: %s\ncurrent:  %s", c.URL, actual)
		}
	case URLContains:
		positive = fmt.Sprintf("current url should contain %s", c.Text)
		negative = fmt.Sprintf("current url should not contain %s", c.Text)
		if o != nil {
			positive = fmt.Sprintf("wrong url of the active tab\nexpected: %s\ncurrent:  %s", c.Text, actual)
			negative = fmt.Sprintf("wrong url of the active tab\nshould not contain: %s\ncurrent: %s", c.Text, actual)
		}
	case TitleExact:
		positive = fmt.Sprintf("title of the active tab should be %s", c.Title)
		negative = fmt.Sprintf("title of the active tab should not be %s", c.Title)
		if o != nil {
			positive = fmt.Sprintf("wrong title of the active tab\nexpected: %s\ncurrent:  %s", c.Title, actual)
		}
	case TitleContains:
		positive = fmt.Sprintf("title of the active tab should contain %s", c.Text)
		negative = fmt.Sprintf("title of the active tab should not contain %s", c.Text)
		if o != nil {
			positive = fmt.Sprintf("wrong title of the active tab\nexpected: %s\ncurrent:  %s", c.Text, actual)
			negative = fmt.Sprintf("wrong title of the active tab\nshould not contain: %s\ncurrent: %s", c.Text, actual)
		}
	case CountWindows:
		positive = fmt.Sprintf("number of browser windows should be %d", c.Count)
		negative = fmt.Sprintf("number of browser windows should not be %d", c.Count)
		if o != nil {
			positive = fmt.Sprintf("wrong number of browser windows\nexpected: %d\ncurrent:  %s", c.Count, actual)
		}
	case CountFrames:
		positive = fmt.Sprintf("number of frames should be %d", c.Count)
		negative = fmt.Sprintf("number of frames should not be %d", c.Count)
		if o != nil {
			positive = fmt.Sprintf("wrong number of frames in the current window\nexpected: %d\ncurrent:  %s", c.Count, actual)
		}
	default:
		positive = fmt.Sprintf("%s should match %T", name, c)
		negative = fmt.Sprintf("%s should not match %T", name, c)
	}

	if expect {
		return positive
	}
	return negative
}

// message joins the caller message with the generated description.
func message(c Condition, custom string, description string) string {
	if !appendsMessage(c) {
		if strings.TrimSpace(custom) != "" {
			return strings.TrimSpace(custom)
		}
		return strings.TrimSpace(description)
	}
	if custom != "" {
		custom += "\n"
	}
	return strings.TrimSpace(custom + description)
}

func formatValues(m map[string]string) string {
	pairs := make([]string, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ", ")
}

func formatSize(s Size) string {
	switch {
	case s.Width != nil && s.Height != nil:
		return fmt.Sprintf("%dx%d", *s.Width, *s.Height)
	case s.Width != nil:
		return fmt.Sprintf("width %d", *s.Width)
	case s.Height != nil:
		return fmt.Sprintf("height %d", *s.Height)
	default:
		return "unset"
	}
}
