package cli

// SwapOpenURL replaces the browser opener for the duration of a test.
func SwapOpenURL(fn func(string) error) (restore func()) {
	prev := openURL
	openURL = fn
	return func() { openURL = prev }
}
