package chat

import "github.com/cexll/chatkit-go/pkg/bus"

// Events published by the log. Payload types:
//
//	EventMessageAdded/Updated/Deleted  Message (a copy)
//	EventAllCleared                    nil
//	EventDataSaved                     string, save instant as RFC 3339
//	EventDataLoaded/DataImported       []Message (a copy)
//	EventSaveError/LoadError/ImportError  string, error description
const (
	EventMessageAdded   bus.Event = "messageAdded"
	EventMessageUpdated bus.Event = "messageUpdated"
	EventMessageDeleted bus.Event = "messageDeleted"
	EventAllCleared     bus.Event = "allCleared"
	EventDataSaved      bus.Event = "dataSaved"
	EventDataLoaded     bus.Event = "dataLoaded"
	EventDataImported   bus.Event = "dataImported"
	EventSaveError      bus.Event = "saveError"
	EventLoadError      bus.Event = "loadError"
	EventImportError    bus.Event = "importError"
)
