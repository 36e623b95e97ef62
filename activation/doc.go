// Package activation defines what the cache needs from the activation
// pipeline that builds instances: a resolution Context describing what was
// built and where, and a Pipeline able to deactivate an instance when the
// cache lets go of it.
package activation
