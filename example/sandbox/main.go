package main

import (
	"bytes"
	_ "embed"
	"fmt"
	"log"
	"os"

	"github.com/akmonengine/marble"
	"github.com/akmonengine/marble/actor"
	"github.com/akmonengine/marble/field"
	"github.com/go-gl/mathgl/mgl64"
)

//go:embed config.yaml
var configYAML []byte

//go:embed scene.yaml
var sceneYAML []byte

// frame times of a host that stutters once, to show the substep cap
var frames = []float64{1.0 / 60, 1.0 / 60, 1.0 / 30, 0.25, 1.0 / 60}

// SimpleDebugger prints what the sandbox reports
type SimpleDebugger struct {
	logger *log.Logger
}

func (d *SimpleDebugger) OnCollision(event marble.CollisionEvent) {
	if event.Impulse < 1 {
		return
	}
	d.logger.Printf("t=%.2fs %s hit %s: impulse %.2f at %v",
		event.Time, name(event.BodyA), name(event.BodyB), event.Impulse, event.Point)
}

func (d *SimpleDebugger) OnEvent(event marble.Event) {
	switch e := event.(type) {
	case marble.TriggerEnterEvent:
		d.logger.Printf("%v: %s / %s", e.Type(), name(e.BodyA), name(e.BodyB))
	case marble.SleepEvent:
		d.logger.Printf("%v: %s", e.Type(), name(e.Body))
	case marble.WakeEvent:
		d.logger.Printf("%v: %s", e.Type(), name(e.Body))
	}
}

func name(body *actor.RigidBody) string {
	if n, ok := body.UserData.(string); ok {
		return n
	}
	return fmt.Sprintf("#%d", body.Id)
}

func run(logger *log.Logger) error {
	cfg, err := marble.LoadConfig(bytes.NewReader(configYAML))
	if err != nil {
		return err
	}
	scene, err := marble.LoadScene(bytes.NewReader(sceneYAML))
	if err != nil {
		return err
	}

	world := marble.NewWorld(cfg)
	world.SetLogger(logger)
	named, err := world.SpawnScene(scene)
	if err != nil {
		return err
	}

	debugger := &SimpleDebugger{logger: logger}
	world.OnCollision(debugger.OnCollision)
	for _, eventType := range []marble.EventType{marble.TRIGGER_ENTER, marble.ON_SLEEP, marble.ON_WAKE} {
		world.Events.Subscribe(eventType, debugger.OnEvent)
	}

	stepper := marble.NewStepper(world, 0, 0)

	fmt.Println("Marble sandbox")
	fmt.Println("==============")

	for second := 0; second < 6; second++ {
		switch second {
		case 1:
			world.AddField(field.NewExplosion(mgl64.Vec3{1, 0, 0}, 12, 4, world.Time(), 0.3))
		case 2:
			world.AddField(field.NewWindGust(mgl64.Vec3{}, mgl64.Vec3{-1, 0, 0}, 3, 20, world.Time(), 1))
		case 3:
			world.AddField(field.NewMagnet(mgl64.Vec3{0, 1, 0}, 2, 6, world.Time(), 1.5))
		}

		for i := 0; i < 60; i++ {
			stepper.Advance(frames[i%len(frames)])
		}
		world.PruneFields()

		ball := named["ball"]
		fmt.Printf("t=%.2fs ball at %v speed %.2f, impact %.2f, fields %d\n",
			world.Time(), ball.Transform.Position, ball.Velocity.Len(), world.ImpactForce(), len(world.Fields))
	}

	if hit, ok := world.Raycast(mgl64.Vec3{0, 10, 0.1}, mgl64.Vec3{0, -10, 0.1}); ok {
		fmt.Printf("ray down from y=10 hits %s at %v (%.2f away)\n", name(hit.Body), hit.Point, hit.Distance)
	}
	for _, body := range world.OverlapSphere(named["ball"].Transform.Position, 1.5) {
		fmt.Printf("near the ball: %s (%v)\n", name(body), body.Category)
	}
	fmt.Printf("dropped %.3fs of simulation\n", stepper.Dropped())

	return nil
}

func main() {
	logger := log.New(os.Stderr, "sandbox: ", 0)
	if err := run(logger); err != nil {
		logger.Fatalf("%+v", err)
	}
}
