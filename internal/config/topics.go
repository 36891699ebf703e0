package config

const (
	// TopicPipelineProgress is the NSQ topic carrying per-job progress events
	// emitted by the batch processor. Consumers (menubar UI, websocket relay)
	// subscribe to it; publishing is fire-and-forget.
	TopicPipelineProgress = "pipeline.progress"
)
