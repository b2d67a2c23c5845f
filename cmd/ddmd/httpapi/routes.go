package httpapi

// allCommands is the full route table, grouped the same way
// SPEC_FULL.md §6.2 groups the wire entrypoints: device enumeration
// and lookup, disk-system info, shadow lifecycle, validators and
// typed mutators, ad-hoc jobs, job introspection, file-backed
// devices, and devfs publication.
// cmdDeviceFind/cmdPartitionFind (static "find" paths) are registered
// ahead of cmdDevice ("/v1/devices/{id}"): gorilla/mux matches routes
// in registration order, and a single-segment {id} template would
// otherwise swallow "/v1/devices/find" first, since "find" binds to
// {id} just as well as a numeric id does.
var allCommands = []*Command{
	cmdDevices,
	cmdDeviceFind,
	cmdPartitionFind,
	cmdDevice,
	cmdPartitionableSpaces,
	cmdFileDevices,
	cmdFileDevice,

	cmdDiskSystems,
	cmdDiskSystemFind,
	cmdSupports,

	cmdShadow,
	cmdTeam,
	cmdTeamModified,
	cmdNodeValidate,
	cmdNodeEdit,
	cmdChildren,
	cmdChild,

	cmdDefragment,
	cmdRepair,
	cmdQueue,
	cmdQueueProgress,
	cmdQueuePause,
	cmdQueueContinue,
	cmdQueueCancel,

	cmdDevicePublish,
}
