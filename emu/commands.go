package emu

import "fmt"

//go:generate go tool stringer -type=CommandKind
type CommandKind uint8

const (
	LoadState CommandKind = iota
	SaveState
	Record
	Replay
	StartTrace
	StopTrace
)

// A Command is a request to the system, executed at the start of the next
// epoch. Commands are executed in the order they were pushed.
type Command struct {
	Kind CommandKind

	// Record, StartTrace: number of frames, -1 for no limit.
	Frames int

	// Replay: history index of the first frame to replay.
	Frame int
	// Replay: pause on the replayed frame.
	Pause bool
}

func (c Command) String() string {
	switch c.Kind {
	case Record, StartTrace:
		return fmt.Sprintf("%s(%d)", c.Kind, c.Frames)
	case Replay:
		return fmt.Sprintf("%s(%d, pause=%t)", c.Kind, c.Frame, c.Pause)
	}
	return c.Kind.String()
}

func CmdLoadState() Command            { return Command{Kind: LoadState} }
func CmdSaveState() Command            { return Command{Kind: SaveState} }
func CmdRecord(frames int) Command     { return Command{Kind: Record, Frames: frames} }
func CmdStartTrace(frames int) Command { return Command{Kind: StartTrace, Frames: frames} }
func CmdStopTrace() Command            { return Command{Kind: StopTrace} }
func CmdReplay(frame int, pause bool) Command {
	return Command{Kind: Replay, Frame: frame, Pause: pause}
}

//go:generate go tool stringer -type=PlaybackState
type PlaybackState uint8

const (
	Running PlaybackState = iota
	Recording
	Replaying
	Paused
	Finished // replay went past the end of the history.
)

// emulating reports whether the system runs in this state.
func (ps PlaybackState) emulating() bool {
	return ps == Running || ps == Recording || ps == Replaying
}
