package rttierr

// Op names the engine operation an error was raised from.
type Op int8

const (
	Unknown Op = iota
	Encode
	Decode
	Register
	Peek
	Inspect
)

func (o Op) String() string {
	ops := map[Op]string{
		Unknown:  "unknown",
		Encode:   "encode",
		Decode:   "decode",
		Register: "register",
		Peek:     "peek",
		Inspect:  "inspect",
	}

	if str, ok := ops[o]; ok {
		return str
	}
	return "unknown"
}
