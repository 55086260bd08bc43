package logfields

import "go.uber.org/zap"

func Event(val string) zap.Field {
	return zap.String("event", val)
}

func Bot(val string) zap.Field {
	return zap.String("bot", val)
}

func Command(val string) zap.Field {
	return zap.String("command", val)
}

func CommandArgs(val string) zap.Field {
	return zap.String("command_args", val)
}
