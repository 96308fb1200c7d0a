// Package services implements the business logic layer between the HTTP
// handlers and the ingestion core.
//
// # Available Services
//
//	- CampaignService: runs uploads through the ingestion pipeline into the
//	  session, exposes the filtered view, facets and summary, exports the
//	  filtered records and pushes every new view to WebSocket clients
//	- HealthService: reports liveness and component health
//
// # Error Handling
//
// Services return plain sentinel errors (ErrNoFiles, ErrUnknownExportFormat,
// dataprocessing.ErrNoValidData) that handlers map to problem responses.
//
// # Testing
//
// Collaborators that leave the process are mocked with testify:
//
//	broadcaster := &MockBroadcaster{}
//	broadcaster.On("Broadcast", websocket.TypeCampaignsUpdate, mock.Anything).Return(nil)
//	svc.PublishTo(broadcaster)
package services
