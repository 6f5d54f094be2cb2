package app

import "math/rand"

// bloodFacts rotate on the public facts endpoint.
var bloodFacts = []string{
	"One donation can save up to 3 lives!",
	"Blood cannot be manufactured – it can only come from donors.",
	"Type O- is the universal donor blood type.",
	"Only 7% of people have O- blood type.",
	"Red blood cells can be stored for up to 42 days.",
	"A single car accident victim may need up to 100 units of blood.",
	"Blood donation takes only about 10 minutes.",
	"Every 2 seconds, someone needs blood.",
	"AB+ is the universal recipient blood type.",
	"Donated blood is tested for HIV, Hepatitis B & C, and other diseases.",
}

// RandomBloodFact picks one entry from the facts pool.
func RandomBloodFact() string {
	return bloodFacts[rand.Intn(len(bloodFacts))]
}
