package radoff

type Coordinator interface {

	// returns the devices fetched by the latest refresh
	Snapshot() Snapshot

	// looks a device up in the latest snapshot
	DeviceByID(deviceType, deviceID string) (Device, bool)

	// registers fn to be called after every successful refresh; the returned
	// func removes it
	Subscribe(fn func()) (cancel func())
}
