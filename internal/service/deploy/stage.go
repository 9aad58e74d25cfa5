package deploy

// Stage is a state of the deploy run.
type Stage string

const (
	StageStart          Stage = "start"
	StageEnvCheck       Stage = "env-check"
	StageResolveVersion Stage = "resolve-version"
	StageConfirm        Stage = "confirm"
	StageBuild          Stage = "build"
	StageWriteVersion   Stage = "write-version"
	StagePublish        Stage = "publish"
	StageDone           Stage = "done"
	StageFailed         Stage = "failed"
	StageCancelled      Stage = "cancelled"
)
