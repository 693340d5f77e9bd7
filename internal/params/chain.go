package params

// First-present helpers. A source is present when its pointer is non-nil;
// the pointed-to value is never inspected, so "" / 0 / false supplied on
// purpose win over lower layers.

func firstString(sources ...*string) (string, bool) {
	for _, s := range sources {
		if s != nil {
			return *s, true
		}
	}
	return "", false
}

func firstInt(sources ...*int) (int, bool) {
	for _, s := range sources {
		if s != nil {
			return *s, true
		}
	}
	return 0, false
}

func firstBool(sources ...*bool) (bool, bool) {
	for _, s := range sources {
		if s != nil {
			return *s, true
		}
	}
	return false, false
}
