package simulator

// Version of the simulator, reported in sweep and recording metadata.
const Version = "1.0.0"
