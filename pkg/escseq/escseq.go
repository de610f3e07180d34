package escseq

import "fmt"

const KeyEscape = 27

var (
	// Terminal Escape Sequences.
	// These never change with SetColors, prompt matching depends on them.
	underline = []byte{KeyEscape, '[', '4', 'm'}
	reset     = []byte{KeyEscape, '[', '0', 'm'}

	// Colors
	resetColor       = []byte{KeyEscape, '[', '0', 'm'}
	greyBold         = []byte{KeyEscape, '[', '1', ';', '9', '0', 'm'}
	redBrightBold    = []byte{KeyEscape, '[', '1', ';', '9', '1', 'm'}
	redBold          = []byte{KeyEscape, '[', '1', ';', '3', '1', 'm'}
	yellowBrightBold = []byte{KeyEscape, '[', '1', ';', '9', '3', 'm'}
	blueBrightBold   = []byte{KeyEscape, '[', '1', ';', '9', '4', 'm'}
	cyanBold         = []byte{KeyEscape, '[', '1', ';', '3', '6', 'm'}
	greenBold        = []byte{KeyEscape, '[', '1', ';', '3', '2', 'm'}
)

// SetColors disables every color sequence when enabled is false.
func SetColors(enabled bool) {
	if !enabled {
		resetColor = []byte("")
		greyBold = []byte("")
		redBrightBold = []byte("")
		redBold = []byte("")
		yellowBrightBold = []byte("")
		blueBrightBold = []byte("")
		cyanBold = []byte("")
		greenBold = []byte("")
	}
}

// UnderlineText wraps m the way the aggressor console renders its prompt name.
func UnderlineText(m string) string {
	return fmt.Sprintf("%s%s%s", string(underline), m, string(reset))
}

// ConsolePrompt returns the idle prompt emitted by the headless console, including
// the line break that precedes it. Control codes are part of the literal.
func ConsolePrompt(name string) string {
	return "\r\n" + UnderlineText(name) + ">"
}

// Colors

func GreyBoldText(m string) string {
	return fmt.Sprintf("%s%s%s", string(greyBold), m, string(resetColor))
}

func RedBoldText(m string) string {
	return fmt.Sprintf("%s%s%s", string(redBold), m, string(resetColor))
}

func RedBrightBoldText(m string) string {
	return fmt.Sprintf("%s%s%s", string(redBrightBold), m, string(resetColor))
}

func YellowBrightBoldText(m string) string {
	return fmt.Sprintf("%s%s%s", string(yellowBrightBold), m, string(resetColor))
}

func BlueBrightBoldText(m string) string {
	return fmt.Sprintf("%s%s%s", string(blueBrightBold), m, string(resetColor))
}

func CyanBoldText(m string) string {
	return fmt.Sprintf("%s%s%s", string(cyanBold), m, string(resetColor))
}

func GreenBoldText(m string) string {
	return fmt.Sprintf("%s%s%s", string(greenBold), m, string(resetColor))
}
