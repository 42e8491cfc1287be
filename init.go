package videoio

import (
	"sync"

	"github.com/thesyncim/videoio/engine"

	// Engines register themselves with the engine registry.
	_ "github.com/thesyncim/videoio/engine/ffmpeg"
	_ "github.com/thesyncim/videoio/engine/native"
)

var initState struct {
	once sync.Once
	eng  engine.Engine
	err  error
}

// Init resolves the default engine, routes its log output into the package
// logger and reports the hardware devices it can use. It runs once per
// process; builders call it when no engine is given explicitly.
func Init() error {
	initState.once.Do(func() {
		eng, err := engine.Default()
		if err != nil {
			initState.err = backendErr("init", err)
			return
		}
		if err := eng.Init(engine.InitConfig{Log: engineLogSink}); err != nil {
			initState.err = backendErr("init "+eng.Name(), err)
			return
		}
		initState.eng = eng

		log := Logger().WithField("engine", eng.Name())
		log.WithField("engines", engine.Names()).Debug("engine initialized")
		for _, t := range ListAvailableHWDeviceTypes() {
			log.WithField("device", t.String()).Debug("hardware acceleration device available")
		}
	})
	return initState.err
}

// defaultEngine returns the engine selected by Init.
func defaultEngine() (engine.Engine, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return initState.eng, nil
}

// resolveEngine returns eng when set, otherwise the default engine.
func resolveEngine(eng engine.Engine) (engine.Engine, error) {
	if eng != nil {
		return eng, nil
	}
	return defaultEngine()
}
