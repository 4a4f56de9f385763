package core

// epsilon is the tolerance used to treat near-zero quantities as flat/done,
// per §4.3.
const epsilon = 1e-12
