package semantic

import "strings"

func explain(cosine, concept, dense float64, shared []string) string {
	var parts []string

	switch {
	case cosine > 0.5:
		parts = append(parts, "висока текстова схожість")
	case cosine > 0.2:
		parts = append(parts, "помірна текстова схожість")
	case cosine > 0:
		parts = append(parts, "низька текстова схожість")
	}

	switch {
	case concept > 0.5:
		parts = append(parts, "сильний концептуальний збіг")
	case concept > 0:
		parts = append(parts, "часткова концептуальна схожість")
	}

	if dense > 0.5 {
		parts = append(parts, "близькість за змістом")
	}

	if len(shared) > 0 {
		parts = append(parts, "спільні теми: "+strings.Join(shared, ", "))
	}

	if len(parts) == 0 {
		return "загальна схожість"
	}
	return strings.Join(parts, "; ")
}
