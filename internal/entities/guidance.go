package entities

// Myth pairs a common misconception with the facts
type Myth struct {
	Myth    string `yaml:"myth" json:"myth"`
	Reality string `yaml:"reality" json:"reality"`
}

// FeatureCard is one of the "Explore the App" cards on the home page
type FeatureCard struct {
	Icon        string `yaml:"icon"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Link        string `yaml:"link"`
}
