package scenes

// Messages shared across scenes. Warnings are prefixed with ⚠️ when sent.
const (
	MsgCancelled      = "🐾 The operation has been cancelled 🐾"
	MsgIdentity       = "There has been an error. Please try again later."
	MsgNoPets         = "You don't have pets registered right now. Use the /pets menu to register them."
	MsgPetNotFound    = "The pet was not found. Please try again later."
	MsgSelectOption   = "The selected option is not valid. Please select one of the available options."
	MsgChooseOption   = "You must choose one of the available options. Please select again."
	MsgSelectListed   = "Please select one of the listed pets."
	MsgLocation       = "You must provide a valid location."
	MsgNoSpecies      = "There are no species available right now for pet registration. Please try again later!"
	MsgConfirmYes     = `Please review the information and send <b>"yes"</b> to confirm`
	MsgSaveFailed     = "We could not save your pet. Please try again later."
	MsgPetSaved       = "✅ Your pet has been saved correctly!"
	MsgActiveReport   = "The selected pet already has an active report. You can update it by using the <b>/reports</b> command."
	MsgReportSaved    = "✅ Your report has been generated correctly. Use <b>/reports</b> to manage them."
	MsgReportNotify   = "🔎 You will get a notification in case someone finds your pet."
	MsgReportFailed   = "We could not save the report. Please try again later."
	MsgNoNearReports  = "🔎❌ There are no active reports of lost pets near to the provided location."
	MsgUpdateRestart  = "There has been an issue with the current flow. Restarting process."
	MsgPetUpdated     = "✅ The pet has been updated correctly!"
	MsgPetRemoved     = "✔️ The pet and the reports have been removed correctly."
	MsgOwnersLinked   = "✅ The secondary owners have been linked correctly!"
	MsgOwnersInvalid  = "Operation cancelled. All provided owner IDs are invalid."
	MsgReportRemoved  = "✔️ The report has been removed correctly."
	MsgLocationSaved  = "✔️ The location has been updated correctly."
	MsgReportFound    = "✔️ The report has been closed. We are glad your pet is back home!"
	MsgContactShared  = "✔️ Thanks for your help. Your phone has been shared with the owners!"
	MsgContactRequest = "Please send your contact to reach out to the owners."
	MsgContactMissing = "Please provide your contact information."
	MsgListedOption   = "Please select one of the listed options."
)
