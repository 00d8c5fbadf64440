package protocol

// fixed and counted build table entries.
func fixed(id byte, name string, fields ...FieldKind) MessageType {
	return MessageType{ID: id, Name: name, Layout: Fixed, Fields: fields}
}

func counted(id byte, name string, fields ...FieldKind) MessageType {
	mt := MessageType{ID: id, Name: name, Layout: Counted, Fields: fields}
	mt.GroupSize = mt.Width()
	return mt
}

func repeat(k FieldKind, n int) []FieldKind {
	fields := make([]FieldKind, n)
	for i := range fields {
		fields[i] = k
	}
	return fields
}

// sensorReading is a sensor id, value and timestamp.
var sensorReading = []FieldKind{U8, F32, U32}

// BuiltinTypes returns the message types known to every build.
func BuiltinTypes() []MessageType {
	return []MessageType{
		// console link
		counted(TypeCD, "CD", U8, F32, F32),
		fixed(TypeNKR, "NKR", F32, F32),
		fixed(TypeAUD, "AUD", U8),
		counted(TypeBLE, "BLE", repeat(Char, 6)...),
		fixed(TypeLED, "LED", U8),
		fixed(TypeUAV, "UAV", repeat(I8, 4)...),
		counted(TypePTH, "PTH", U8, F32, F32),
		fixed(TypeATM, "ATM", F32, U8, I8, U32, F16, F16, F16, F16),
		fixed(TypeLTM, "LTM", F32, F32, I8, I8, F16, I8, U8),
		fixed(TypeFCE, "FCE", F16, F16, F16, F16, U8),
		fixed(TypeSTS, "STS", repeat(I8, 11)...),
		counted(TypeFND, "FND", repeat(Char, 6)...),
		{ID: TypeTXT, Name: "TXT", Layout: Text, Fields: []FieldKind{Char}},
		counted(TypeCRD, "CRD", U8, F32, F32),

		// vehicle bus
		fixed(TypeWHU, "WHU"),
		fixed(TypeIAM, "IAM"),
		fixed(TypeODO, "ODO", sensorReading...),
		fixed(TypeMR, "MR", sensorReading...),
		fixed(TypeMS, "MS", sensorReading...),
		fixed(TypeMM, "MM", U8, F32),
		fixed(TypeSM, "SM", U8),
		fixed(TypeRT, "RT", U8),
		fixed(TypeLT, "LT", U8),
		fixed(TypeENC, "ENC", sensorReading...),
		fixed(TypeST, "ST", U8, U32, U32),
		fixed(TypeRC, "RC", U8, F32),
		fixed(TypeIMU, "IMU", append(repeat(I16, 9), U32)...),
		fixed(TypeUZ, "UZ", sensorReading...),
		fixed(TypeSP, "SP", U8),
	}
}

// BuiltinSenders returns the participants known to every build.
func BuiltinSenders() []Sender {
	return []Sender{
		{ID: SenderOperator, Name: "OPERATOR"},
		{ID: SenderRobot, Name: "ROBOT"},
		{ID: SenderBort, Name: "BORT"},
		{ID: SenderFPU, Name: "FPU"},
		{ID: SenderBPU, Name: "BPU"},
		{ID: SenderCMC, Name: "CMC"},
	}
}
