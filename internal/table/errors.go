package table

import "github.com/lox/pokertable/internal/engineerror"

func errIllegal(format string, args ...any) error {
	return engineerror.New(engineerror.IllegalAction, format, args...)
}

func errInvalid(format string, args ...any) error {
	return engineerror.New(engineerror.InvalidArgument, format, args...)
}

func errNotInHand(format string, args ...any) error {
	return engineerror.New(engineerror.NotInHand, format, args...)
}

func errAlreadySeated() error {
	return engineerror.New(engineerror.AlreadySeated, "identity already has a seat at this table")
}

func errTableFull() error {
	return engineerror.New(engineerror.TableFull, "no empty seat available")
}
