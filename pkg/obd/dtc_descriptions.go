package obd

import "strings"

// DescribeDTC returns a human-readable description for the common
// codes, a generic family description otherwise.
func DescribeDTC(code string) string {
	if desc, ok := dtcDescriptions[code]; ok {
		return desc
	}
	switch {
	case strings.HasPrefix(code, "P0"):
		return "Generic powertrain fault"
	case strings.HasPrefix(code, "P1"):
		return "Manufacturer specific powertrain fault"
	case strings.HasPrefix(code, "C"):
		return "Chassis fault"
	case strings.HasPrefix(code, "B"):
		return "Body fault"
	case strings.HasPrefix(code, "U"):
		return "Network communication fault"
	}
	return "Unknown trouble code"
}

var dtcDescriptions = map[string]string{
	"P0010": "Camshaft Position Actuator Circuit (Bank 1)",
	"P0011": "Camshaft Position Timing Over-Advanced (Bank 1)",
	"P0016": "Crankshaft/Camshaft Position Correlation (Bank 1 Sensor A)",
	"P0030": "HO2S Heater Control Circuit (Bank 1, Sensor 1)",
	"P0087": "Fuel Rail/System Pressure Too Low",
	"P0088": "Fuel Rail/System Pressure Too High",
	"P0101": "Mass Air Flow Circuit Range/Performance",
	"P0102": "Mass Air Flow Circuit Low Input",
	"P0103": "Mass Air Flow Circuit High Input",
	"P0106": "Manifold Absolute Pressure Range/Performance",
	"P0113": "Intake Air Temperature Circuit High Input",
	"P0115": "Engine Coolant Temperature Circuit Malfunction",
	"P0116": "Engine Coolant Temperature Range/Performance",
	"P0117": "Engine Coolant Temperature Circuit Low Input",
	"P0118": "Engine Coolant Temperature Circuit High Input",
	"P0121": "Throttle Position Sensor Range/Performance",
	"P0125": "Insufficient Coolant Temperature For Closed Loop",
	"P0128": "Coolant Thermostat Below Regulating Temperature",
	"P0131": "O2 Sensor Circuit Low Voltage (Bank 1, Sensor 1)",
	"P0133": "O2 Sensor Circuit Slow Response (Bank 1, Sensor 1)",
	"P0135": "O2 Sensor Heater Circuit (Bank 1, Sensor 1)",
	"P0171": "System Too Lean (Bank 1)",
	"P0172": "System Too Rich (Bank 1)",
	"P0174": "System Too Lean (Bank 2)",
	"P0175": "System Too Rich (Bank 2)",
	"P0190": "Fuel Rail Pressure Sensor Circuit Malfunction",
	"P0191": "Fuel Rail Pressure Sensor Range/Performance",
	"P0195": "Engine Oil Temperature Sensor Malfunction",
	"P0196": "Engine Oil Temperature Sensor Range/Performance",
	"P0201": "Injector Circuit Malfunction - Cylinder 1",
	"P0234": "Turbocharger Overboost Condition",
	"P0299": "Turbocharger Underboost Condition",
	"P0300": "Random/Multiple Cylinder Misfire Detected",
	"P0301": "Cylinder 1 Misfire Detected",
	"P0302": "Cylinder 2 Misfire Detected",
	"P0303": "Cylinder 3 Misfire Detected",
	"P0304": "Cylinder 4 Misfire Detected",
	"P0305": "Cylinder 5 Misfire Detected",
	"P0306": "Cylinder 6 Misfire Detected",
	"P0325": "Knock Sensor 1 Circuit Malfunction",
	"P0335": "Crankshaft Position Sensor A Circuit Malfunction",
	"P0340": "Camshaft Position Sensor Circuit Malfunction",
	"P0401": "Exhaust Gas Recirculation Flow Insufficient",
	"P0402": "Exhaust Gas Recirculation Flow Excessive",
	"P0420": "Catalyst System Efficiency Below Threshold (Bank 1)",
	"P0430": "Catalyst System Efficiency Below Threshold (Bank 2)",
	"P0440": "Evaporative Emission Control System Malfunction",
	"P0441": "Evaporative Emission Incorrect Purge Flow",
	"P0442": "Evaporative Emission Leak Detected (Small)",
	"P0455": "Evaporative Emission Leak Detected (Large)",
	"P0500": "Vehicle Speed Sensor Malfunction",
	"P0505": "Idle Control System Malfunction",
	"P0506": "Idle Control System RPM Lower Than Expected",
	"P0507": "Idle Control System RPM Higher Than Expected",
	"P0562": "System Voltage Low",
	"P0563": "System Voltage High",
	"P0601": "Internal Control Module Memory Check Sum Error",
	"P0700": "Transmission Control System Malfunction",
	"P0715": "Input/Turbine Speed Sensor Circuit Malfunction",
	"C0035": "Left Front Wheel Speed Sensor Circuit",
	"C0040": "Right Front Wheel Speed Sensor Circuit",
	"B0001": "Driver Frontal Stage 1 Deployment Control",
	"U0001": "High Speed CAN Communication Bus",
	"U0100": "Lost Communication With ECM/PCM",
	"U0101": "Lost Communication With TCM",
	"U0121": "Lost Communication With ABS Module",
	"U0140": "Lost Communication With Body Control Module",
	"U0155": "Lost Communication With Instrument Cluster",
}
