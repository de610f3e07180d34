package slog

import "agbridge/pkg/escseq"

func colorLevel(level int, colorOn bool) string {
	name := levelNames[level]
	if !colorOn {
		return name
	}
	switch level {
	case levelDebug:
		return escseq.BlueBrightBoldText(name)
	case levelInfo:
		return escseq.CyanBoldText(name)
	case levelWarn:
		return escseq.YellowBrightBoldText(name)
	case levelError:
		return escseq.RedBoldText(name)
	case levelFatal:
		return escseq.RedBrightBoldText(name)
	}
	return name
}

func colorGreyOut(m string, colorOn bool) string {
	if colorOn {
		return escseq.GreyBoldText(m)
	}
	return m
}
