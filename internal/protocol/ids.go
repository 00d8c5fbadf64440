package protocol

// Console link message type ids
const (
	TypeCD  = 0x50 // waypoint list (count * index, x, y)
	TypeNKR = 0x40
	TypeAUD = 0x70 // audio command
	TypeBLE = 0x71 // BLE addresses (count * 6 bytes)
	TypeLED = 0x41
	TypeUAV = 0x42
	TypePTH = 0x51 // path points (count * index, x, y)
	TypeATM = 0xF1 // vehicle telemetry
	TypeLTM = 0xF2 // location telemetry
	TypeFCE = 0x60
	TypeSTS = 0x61 // subsystem status flags
	TypeFND = 0x72 // found BLE devices (count * 6 bytes)
	TypeTXT = 0x62 // free text
	TypeCRD = 0x52 // coordinates (count * index, x, y)
)

// Vehicle bus message type ids
const (
	TypeWHU = 0x01 // who are you request
	TypeIAM = 0x02 // device id reply
	TypeODO = 0xB1 // wheel speed sensor
	TypeMR  = 0xB2 // motor resolver
	TypeMS  = 0xB3 // motor shaft speed
	TypeMM  = 0xBA // motor torque command
	TypeSM  = 0xC0 // brake light on/off
	TypeRT  = 0xC1 // right turn signal on/off
	TypeLT  = 0xC2 // left turn signal on/off
	TypeENC = 0xE0 // steering stepper angle
	TypeST  = 0xE1 // status
	TypeRC  = 0xEA // stepper angle command
	TypeIMU = 0xB0 // inertial module readings
	TypeUZ  = 0xD0 // ultrasonic range finder
	TypeSP  = 0xBB // hydraulic parking brake
)

// Sender ids
const (
	SenderOperator = 0xA6
	SenderRobot    = 0xB0
	SenderBort     = 0xB0 // vehicle board, shares the robot id
	SenderFPU      = 0xB1 // front power unit controller
	SenderBPU      = 0xB2 // rear power unit controller
	SenderCMC      = 0xB3 // general purpose controller
)

// Sensor ids carried in the first field of vehicle bus readings
const (
	SensorFrontLeftWheel  = 7
	SensorFrontRightWheel = 8
	SensorRearLeftWheel   = 10
	SensorRearRightWheel  = 11
	SensorFrontResolver   = 209
	SensorRearResolver    = 210
	SensorFrontMotorShaft = 211
	SensorRearMotorShaft  = 212
	SensorFrontAxisEnc    = 193
	SensorRearAxisEnc     = 194
	SensorFrontAxisSwitch = 195
	SensorRearAxisSwitch  = 196
)

// Default serial line parameters
const (
	DefaultBaudRate = 115200
	DefaultSender   = "OPERATOR"
)
